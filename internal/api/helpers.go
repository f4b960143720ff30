package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo/v5"
)

// maxBatchBytes bounds the decoded batch image a single request may carry.
const maxBatchBytes = 16 << 20

func writeBadRequest(c *echo.Context, msg, param string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// decodeBatchPayload turns the request's batch field into raw bytes.
func decodeBatchPayload(payload, encoding string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("batch payload is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("batch payload: %w", err)
	}
	switch encoding {
	case "", "base64":
		if len(raw) > maxBatchBytes {
			return nil, fmt.Errorf("batch exceeds %d bytes", maxBatchBytes)
		}
		return raw, nil
	case "zstd+base64":
		dec, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("batch payload: %w", err)
		}
		defer dec.Close()
		data, err := io.ReadAll(io.LimitReader(dec, maxBatchBytes+1))
		if err != nil {
			return nil, fmt.Errorf("batch payload: %w", err)
		}
		if len(data) > maxBatchBytes {
			return nil, fmt.Errorf("batch exceeds %d bytes", maxBatchBytes)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown batch encoding %q", encoding)
	}
}
