// Package encryption - record payload field encoding
package encryption

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/alwitt/healthvault/models"
)

// PayloadCodec converts between plain text record fields and the ciphertext kept in
// the store
type PayloadCodec interface {
	/*
		EncodePayload convert plain text record fields to ciphertext

			@param ctx context.Context - execution context
			@param plain models.PlainPayload - plain text fields
			@returns the ciphertext fields
	*/
	EncodePayload(ctx context.Context, plain models.PlainPayload) (models.RecordPayload, error)

	/*
		DecodePayload convert ciphertext record fields back to plain text

			@param ctx context.Context - execution context
			@param sealed models.RecordPayload - ciphertext fields
			@returns the plain text fields
	*/
	DecodePayload(ctx context.Context, sealed models.RecordPayload) (models.PlainPayload, error)
}

// fieldTransform encode or decode one payload field
type fieldTransform func(ctx context.Context, field string, value string) (string, error)

// encodeFields apply the field encoder to every field. A missing note stays empty.
func encodeFields(
	ctx context.Context, plain models.PlainPayload, encode fieldTransform,
) (models.RecordPayload, error) {
	var result models.RecordPayload
	for _, field := range []struct {
		name   string
		value  string
		output *models.Ciphertext
	}{
		{name: "complaint", value: plain.Complaint, output: &result.Complaint},
		{name: "diagnosis", value: plain.Diagnosis, output: &result.Diagnosis},
		{name: "medications", value: plain.Medications, output: &result.Medications},
		{name: "allergy", value: plain.Allergy, output: &result.Allergy},
	} {
		encoded, err := encode(ctx, field.name, field.value)
		if err != nil {
			return models.RecordPayload{}, fmt.Errorf("failed to encode '%s' [%w]", field.name, err)
		}
		*field.output = models.Ciphertext(encoded)
	}
	if plain.Note != nil {
		encoded, err := encode(ctx, "note", *plain.Note)
		if err != nil {
			return models.RecordPayload{}, fmt.Errorf("failed to encode 'note' [%w]", err)
		}
		result.Note = models.Ciphertext(encoded)
	}
	return result, nil
}

// decodeFields apply the field decoder to every field. Empty ciphertext decodes to an
// empty value.
func decodeFields(
	ctx context.Context, sealed models.RecordPayload, decode fieldTransform,
) (models.PlainPayload, error) {
	var result models.PlainPayload
	for _, field := range []struct {
		name   string
		value  models.Ciphertext
		output *string
	}{
		{name: "complaint", value: sealed.Complaint, output: &result.Complaint},
		{name: "diagnosis", value: sealed.Diagnosis, output: &result.Diagnosis},
		{name: "medications", value: sealed.Medications, output: &result.Medications},
		{name: "allergy", value: sealed.Allergy, output: &result.Allergy},
	} {
		if field.value == "" {
			continue
		}
		decoded, err := decode(ctx, field.name, string(field.value))
		if err != nil {
			return models.PlainPayload{}, fmt.Errorf("failed to decode '%s' [%w]", field.name, err)
		}
		*field.output = decoded
	}
	if sealed.Note != "" {
		decoded, err := decode(ctx, "note", string(sealed.Note))
		if err != nil {
			return models.PlainPayload{}, fmt.Errorf("failed to decode 'note' [%w]", err)
		}
		result.Note = &decoded
	}
	return result, nil
}

// base64JSONCodec implements PayloadCodec as base64 of the JSON string value
type base64JSONCodec struct{}

// NewBase64JSONCodec define a PayloadCodec storing each field as base64(JSON(value)).
//
// The output is only obfuscated. It exists for demo data and for deployments where the
// real ciphertext is produced elsewhere.
func NewBase64JSONCodec() PayloadCodec {
	return base64JSONCodec{}
}

func (base64JSONCodec) encodeField(_ context.Context, _ string, value string) (string, error) {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// decodeField reverse encodeField. Values that are not base64 JSON strings are
// returned unchanged.
func (base64JSONCodec) decodeField(_ context.Context, _ string, value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return value, nil
	}
	var decoded string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return value, nil
	}
	return decoded, nil
}

func (c base64JSONCodec) EncodePayload(
	ctx context.Context, plain models.PlainPayload,
) (models.RecordPayload, error) {
	return encodeFields(ctx, plain, c.encodeField)
}

func (c base64JSONCodec) DecodePayload(
	ctx context.Context, sealed models.RecordPayload,
) (models.PlainPayload, error) {
	return decodeFields(ctx, sealed, c.decodeField)
}
