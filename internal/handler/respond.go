package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/product-desk/internal/wire"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, code int, fn func(e *jx.Encoder)) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(wire.Encode(fn))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, func(e *jx.Encoder) { wire.EncodeError(e, msg) })
}

// readBody decodes a JSON request body of at most maxBodySize bytes.
func readBody(w http.ResponseWriter, r *http.Request, decode func(d *jx.Decoder) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	return decode(jx.DecodeBytes(data))
}
