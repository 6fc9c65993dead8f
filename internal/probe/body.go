package probe

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// readBody returns up to limit decoded body bytes.
//
// net/http decodes gzip itself unless the caller set Accept-Encoding, which
// the usual browser header sets do. In that case gzip and deflate are
// decoded here. Unknown encodings and corrupt compressed data are reported
// as warnings and the raw bytes are searched instead; only I/O failures are
// returned as errors.
func readBody(resp *http.Response, limit int64) ([]byte, []string, error) {
	var warns []string

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if resp.Uncompressed {
		encoding = ""
	}

	var r io.Reader = resp.Body
	switch encoding {
	case "", "identity":
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return decodeFallback(err, warns, "gzip")
		}
		defer zr.Close()
		r = zr
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return decodeFallback(err, warns, "deflate")
		}
		defer zr.Close()
		r = zr
	default:
		warns = append(warns, fmt.Sprintf("unsupported content-encoding %q; matching raw bytes", encoding))
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		if isCorruptEncoding(err) {
			warns = append(warns, "corrupt "+encoding+" body: "+err.Error())
			return body, warns, nil
		}
		return nil, warns, err
	}
	if int64(len(body)) > limit {
		body = body[:limit]
		warns = append(warns, fmt.Sprintf("body truncated at %d bytes", limit))
	}
	return body, warns, nil
}

// decodeFallback handles a decoder that failed on its header: corrupt data
// becomes a warning with an empty body, anything else is an I/O error.
func decodeFallback(err error, warns []string, encoding string) ([]byte, []string, error) {
	if isCorruptEncoding(err) {
		return nil, append(warns, "corrupt "+encoding+" body: "+err.Error()), nil
	}
	return nil, warns, err
}

func isCorruptEncoding(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, gzip.ErrChecksum) ||
		errors.Is(err, zlib.ErrHeader) ||
		errors.Is(err, zlib.ErrChecksum) ||
		errors.Is(err, zlib.ErrDictionary) ||
		errors.As(err, &corrupt)
}
