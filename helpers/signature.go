package helpers

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const SignatureField = "signature"

var ErrSignatureMismatch = errors.New("signature mismatch")

// CanonicalJSON serializes v with object keys sorted at every level and the
// signature field removed. Numbers keep their original literal form.
func CanonicalJSON(v any) ([]byte, error) {
	raw, ok := v.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	delete(fields, SignatureField)

	// encoding/json writes map keys in sorted order.
	return json.Marshal(fields)
}

// SignPayload computes the hex HMAC-MD5 of the canonical payload. MD5 is kept
// because deployed client sites verify with it.
func SignPayload(v any, secretKey string) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return hmacMD5(canonical, secretKey), nil
}

// VerifySignature checks the signature embedded in a raw JSON body.
func VerifySignature(body []byte, secretKey string) error {
	var envelope struct {
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if envelope.Signature == "" {
		return ErrSignatureMismatch
	}

	canonical, err := CanonicalJSON(body)
	if err != nil {
		return err
	}

	expected := hmacMD5(canonical, secretKey)
	if !hmac.Equal([]byte(expected), []byte(envelope.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func hmacMD5(data []byte, secretKey string) string {
	h := hmac.New(md5.New, []byte(secretKey))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
