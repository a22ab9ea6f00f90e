package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/ogen-go/ogen/validate"
	"github.com/shopspring/decimal"

	"github.com/xenking/hospital-orders/internal/domain/validation"
)

const (
	// maxBodySize caps request bodies.
	maxBodySize = 1 << 20
	// maxQuantity caps every quantity or count accepted on the wire.
	maxQuantity = 1_000_000_000
)

// quantityLimit only bounds from above; sign checks stay with the engines so
// negative counts keep their field-specific reasons.
var quantityLimit = validate.Int{MaxSet: true, Max: maxQuantity}

// MalformedError reports a request body that is not the expected JSON shape.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return "malformed request: " + e.Err.Error()
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// decodeBody reads r's body and decodes the top-level object with fn.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return &MalformedError{Err: errors.Wrap(err, "read body")}
	}
	if err := jx.DecodeBytes(body).Obj(fn); err != nil {
		var inErr *validation.InvalidInputError
		if errors.As(err, &inErr) {
			return inErr
		}
		return &MalformedError{Err: err}
	}
	return nil
}

// decodeDecimal reads a JSON number or numeric string as a decimal. Text
// that is not a finite number is an InvalidInputError for line and field.
func decodeDecimal(d *jx.Decoder, line int, field string) (decimal.Decimal, error) {
	var text string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		text = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		text = string(n)
	default:
		return decimal.Zero, validation.New(line, field, "not a finite number")
	}
	return validation.ParseDecimal(line, field, text)
}

// decodeQuantity reads a JSON integer no larger than maxQuantity. Larger
// values are an InvalidInputError for line and field.
func decodeQuantity(d *jx.Decoder, line int, field string) (int, error) {
	v, err := d.Int64()
	if err != nil {
		return 0, err
	}
	if err := quantityLimit.Validate(v); err != nil {
		return 0, validation.New(line, field, "out of range")
	}
	return int(v), nil
}

// decodeArray decodes a JSON array, passing each element's index to fn.
func decodeArray(d *jx.Decoder, fn func(d *jx.Decoder, idx int) error) error {
	idx := 0
	return d.Arr(func(d *jx.Decoder) error {
		err := fn(d, idx)
		idx++
		return err
	})
}

// encodeMoney writes v as a JSON number. Presentation values carry exactly
// two fraction digits; full precision values are written as computed.
func encodeMoney(e *jx.Encoder, v decimal.Decimal, full bool) {
	if full {
		e.Raw([]byte(v.String()))
		return
	}
	e.Raw([]byte(v.StringFixed(2)))
}

// encodeExact writes v exactly as stored, e.g. a rate or unit price.
func encodeExact(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
