// Package api serves batch decoding over HTTP: a health probe, reference
// capability listings per layout family and a decode endpoint accepting
// base64 or zstd-compressed batch images.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/copyforge/blt/internal/version"
	"github.com/copyforge/blt/pkg/blt"
)

type Server struct {
	clock func() time.Time
}

func NewServer() *Server {
	return &Server{clock: time.Now}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/capabilities", s.handleCapabilities)
	e.POST("/v1/decode", s.handleDecode)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.String(),
	})
}

func (s *Server) handleCapabilities(c *echo.Context) error {
	resp := CapabilitiesResponse{Object: "capabilities"}
	for _, v := range []blt.Variant{blt.Gen12, blt.Xe2} {
		resp.Variants = append(resp.Variants, variantCaps(v))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDecode(c *echo.Context) error {
	req, err := decodeJSON[DecodeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error(), "")
	}
	if req.Device.Version == "" {
		return writeBadRequest(c, "device.version is required", "device.version")
	}
	ipver, err := blt.ParseIPVersion(req.Device.Version)
	if err != nil {
		return writeBadRequest(c, err.Error(), "device.version")
	}
	dev := blt.NewDevice(ipver)
	if req.Device.CCSRatio != nil {
		if *req.Device.CCSRatio == 0 {
			return writeBadRequest(c, "device.ccs_ratio must be positive", "device.ccs_ratio")
		}
		dev.CCSRatio = *req.Device.CCSRatio
	}

	data, err := decodeBatchPayload(req.Batch, req.Encoding)
	if err != nil {
		return writeBadRequest(c, err.Error(), "batch")
	}
	insts, err := blt.DecodeBatch(dev, data)
	if err != nil {
		return writeBadRequest(c, err.Error(), "batch")
	}
	if insts == nil {
		insts = []blt.Instruction{}
	}

	return c.JSON(http.StatusOK, DecodeResponse{
		ID:        "dec_" + uuid.NewString(),
		Object:    "decode",
		CreatedAt: s.clock().Unix(),
		Device: DeviceInfo{
			Version:  blt.FormatIPVersion(dev.IPVer),
			Variant:  dev.Variant().String(),
			CCSRatio: dev.CCSRatio,
		},
		Instructions: insts,
	})
}

func variantCaps(v blt.Variant) VariantCaps {
	set := blt.CommandSetFor(v)
	dev := refDevice(v)
	out := VariantCaps{
		Variant:     v.String(),
		CCSRatio:    dev.CCSRatio,
		CCSPageSize: dev.CCSPageSize(),
	}
	for _, id := range set.Commands() {
		entry, _ := set.Lookup(id)
		out.Commands = append(out.Commands, CommandCaps{
			Command:        id.String(),
			Tilings:        tilingNames(entry.Tilings),
			Compression:    set.HasFlag(id, blt.CapCompression),
			ExtendedLayout: set.HasFlag(id, blt.CapExtendedLayout),
		})
	}
	return out
}

func refDevice(v blt.Variant) *blt.Device {
	if v == blt.Xe2 {
		return blt.NewDevice(blt.IPVersion(20, 0))
	}
	return blt.NewDevice(blt.IPVersion(12, 70))
}

func tilingNames(m blt.TilingMask) []string {
	var names []string
	for t := blt.TilingLinear; t <= blt.TilingYs; t++ {
		if m.Has(t) {
			names = append(names, t.String())
		}
	}
	return names
}
