// Package qrcode encodes a rider's identity into the payload carried by
// their QR code and decodes it again at the scanning station.
package qrcode

import (
	"encoding/json"
	"errors"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrMalformedPayload means the scanned text is not a payload object.
	ErrMalformedPayload = errors.New("malformed QR payload")
	// ErrMissingUserID means the payload parsed but carries no user id.
	ErrMissingUserID = errors.New("QR payload has no user id")
)

// Payload is the identity embedded in a QR code.
type Payload struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	BusNumber string `json:"busNumber"`
	Role      string `json:"role"`
}

// Encode serializes p into QR payload text.
func Encode(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses QR payload text produced by Encode.
func Decode(raw string) (Payload, error) {
	var p Payload

	raw = strings.TrimSpace(raw)
	// json null decodes into a zero struct without error
	if !strings.HasPrefix(raw, "{") {
		return Payload{}, ErrMalformedPayload
	}
	// Unmarshal rejects anything after the object, stray closers included
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, ErrMalformedPayload
	}
	if strings.TrimSpace(p.UserID) == "" {
		return Payload{}, ErrMissingUserID
	}
	return p, nil
}

// PNG renders payload as a QR code image of size x size pixels.
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	img, err := goqrcode.Encode(payload, goqrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	return img, nil
}
