// Package wire implements the JSON representation of products and API
// request/response bodies shared by the HTTP server and the gateway client.
package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
)

// TimeLayout is the ISO-8601 UTC millisecond layout used for timestamps.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts any RFC 3339 timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", s)
	}
	return t.UTC(), nil
}

// Encode runs fn against a fresh encoder and returns the bytes.
func Encode(fn func(e *jx.Encoder)) []byte {
	var e jx.Encoder
	fn(&e)
	return e.Bytes()
}

// EncodeProduct writes p as a JSON object. An empty description is null.
func EncodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("description")
	if p.Description == "" {
		e.Null()
	} else {
		e.Str(p.Description)
	}
	e.FieldStart("imageUrls")
	encodeStrings(e, p.ImageURLs)
	e.FieldStart("productUrl")
	e.Str(p.ProductURL)
	e.FieldStart("price")
	e.Str(p.Price)
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.FieldStart("createdAt")
	e.Str(FormatTime(p.CreatedAt))
	e.FieldStart("updatedAt")
	e.Str(FormatTime(p.UpdatedAt))
	e.ObjEnd()
}

// EncodeProducts writes ps as a JSON array.
func EncodeProducts(e *jx.Encoder, ps []product.Product) {
	e.ArrStart()
	for _, p := range ps {
		EncodeProduct(e, p)
	}
	e.ArrEnd()
}

// DecodeProduct reads a product object. Unknown fields are skipped.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "title":
			p.Title, err = d.Str()
		case "description":
			p.Description, err = optString(d)
		case "imageUrls":
			p.ImageURLs, err = decodeStrings(d)
		case "productUrl":
			p.ProductURL, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
		case "status":
			var s string
			if s, err = d.Str(); err == nil {
				p.Status, err = product.ParseStatus(s)
			}
		case "createdAt":
			p.CreatedAt, err = decodeTime(d)
		case "updatedAt":
			p.UpdatedAt, err = decodeTime(d)
		default:
			return d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "decode product")
	}
	return p, nil
}

// DecodeProducts reads a JSON array of products.
func DecodeProducts(d *jx.Decoder) ([]product.Product, error) {
	ps := []product.Product{}
	err := d.Arr(func(d *jx.Decoder) error {
		p, err := DecodeProduct(d)
		if err != nil {
			return err
		}
		ps = append(ps, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return ps, nil
}

// EncodeInput writes a create-product request body.
func EncodeInput(e *jx.Encoder, in product.Input) {
	e.ObjStart()
	e.FieldStart("title")
	e.Str(in.Title)
	e.FieldStart("description")
	if in.Description == "" {
		e.Null()
	} else {
		e.Str(in.Description)
	}
	e.FieldStart("imageUrls")
	encodeStrings(e, in.ImageURLs)
	e.FieldStart("productUrl")
	e.Str(in.ProductURL)
	e.FieldStart("price")
	e.Str(in.Price)
	e.ObjEnd()
}

// DecodeInput reads a create-product request body. Price may be a JSON
// string or number; a status field is ignored.
func DecodeInput(d *jx.Decoder) (product.Input, error) {
	var in product.Input
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "title":
			in.Title, err = optString(d)
		case "description":
			in.Description, err = optString(d)
		case "imageUrls":
			in.ImageURLs, err = decodeStrings(d)
		case "productUrl":
			in.ProductURL, err = optString(d)
		case "price":
			in.Price, err = decodePrice(d)
		default:
			return d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	if err != nil {
		return product.Input{}, errors.Wrap(err, "decode input")
	}
	return in, nil
}

// EncodePassword writes a login request body.
func EncodePassword(e *jx.Encoder, password string) {
	e.ObjStart()
	e.FieldStart("password")
	e.Str(password)
	e.ObjEnd()
}

// DecodePassword reads a login request body.
func DecodePassword(d *jx.Decoder) (string, error) {
	var password string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "password" {
			return d.Skip()
		}
		var err error
		password, err = optString(d)
		return err
	})
	return password, errors.Wrap(err, "decode login")
}

// EncodeRole writes a {"role": ...} body.
func EncodeRole(e *jx.Encoder, role auth.Role) {
	e.ObjStart()
	e.FieldStart("role")
	e.Str(string(role))
	e.ObjEnd()
}

// DecodeRole reads a {"role": ...} body.
func DecodeRole(d *jx.Decoder) (auth.Role, error) {
	var role auth.Role
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "role" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		role, err = auth.ParseRole(s)
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "decode role")
	}
	return role, nil
}

// EncodeStatus writes a status update body.
func EncodeStatus(e *jx.Encoder, status product.Status) {
	e.ObjStart()
	e.FieldStart("status")
	e.Str(string(status))
	e.ObjEnd()
}

// DecodeStatus reads a status update body. The returned status is not
// validated.
func DecodeStatus(d *jx.Decoder) (product.Status, error) {
	var status product.Status
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		s, err := optString(d)
		status = product.Status(s)
		return err
	})
	return status, errors.Wrap(err, "decode status")
}

// EncodeSuccess writes {"success":true}.
func EncodeSuccess(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.ObjEnd()
}

// EncodeError writes {"error": msg}.
func EncodeError(e *jx.Encoder, msg string) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()
}

// DecodeError extracts the message from an error body. It returns "" when
// data is not an error object.
func DecodeError(data []byte) string {
	var msg string
	_ = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "error" || d.Next() != jx.String {
			return d.Skip()
		}
		var err error
		msg, err = d.Str()
		return err
	})
	return msg
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.ArrStart()
	for _, s := range ss {
		e.Str(s)
	}
	e.ArrEnd()
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	ss := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		ss = append(ss, s)
		return nil
	})
	return ss, err
}

// optString reads a string, treating null as "".
func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodePrice accepts a JSON string or number and returns its text.
func decodePrice(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case jx.Null:
		return "", d.Null()
	default:
		return d.Str()
	}
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return ParseTime(s)
}
