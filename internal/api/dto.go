package api

import "github.com/copyforge/blt/pkg/blt"

// DeviceParams selects the device a request is decoded against.
type DeviceParams struct {
	Version  string  `json:"version"`
	CCSRatio *uint32 `json:"ccs_ratio,omitempty"`
}

// DecodeRequest carries a batch image to decode. The batch is base64 by
// default; "zstd+base64" marks a zstd-compressed image.
type DecodeRequest struct {
	Device   DeviceParams `json:"device"`
	Batch    string       `json:"batch"`
	Encoding string       `json:"encoding,omitempty"`
}

// DeviceInfo echoes the resolved device back to the caller.
type DeviceInfo struct {
	Version  string `json:"version"`
	Variant  string `json:"variant"`
	CCSRatio uint32 `json:"ccs_ratio"`
}

// DecodeResponse lists the instructions decoded from one batch image.
type DecodeResponse struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	CreatedAt    int64             `json:"created_at"`
	Device       DeviceInfo        `json:"device"`
	Instructions []blt.Instruction `json:"instructions"`
}

// CommandCaps is one command row of a capability listing.
type CommandCaps struct {
	Command        string   `json:"command"`
	Tilings        []string `json:"tilings"`
	Compression    bool     `json:"compression"`
	ExtendedLayout bool     `json:"extended_layout"`
}

// VariantCaps is the reference capability table of one layout family.
type VariantCaps struct {
	Variant     string        `json:"variant"`
	CCSRatio    uint32        `json:"ccs_ratio"`
	CCSPageSize uint32        `json:"ccs_page_size"`
	Commands    []CommandCaps `json:"commands"`
}

// CapabilitiesResponse lists the reference command sets per variant.
type CapabilitiesResponse struct {
	Object   string        `json:"object"`
	Variants []VariantCaps `json:"variants"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ResponseError is the error body inside the {"error": ...} envelope.
type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
