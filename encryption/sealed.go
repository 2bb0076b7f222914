package encryption

import (
	"context"
	"encoding/base64"
	"fmt"

	cgoCrypto "github.com/alwitt/cgoutils/crypto"
	"github.com/alwitt/goutils"
	"github.com/alwitt/healthvault/models"
	"github.com/apex/log"
)

// sealingAEAD the AEAD used to seal record fields
var sealingAEAD = cgoCrypto.AEADTypeXChaCha20Poly1305

// sealedCodec implements PayloadCodec with authenticated encryption
type sealedCodec struct {
	goutils.Component

	crypto cgoCrypto.Engine
	key    []byte
}

// newCryptoEngine prepare the core crypto engine
func newCryptoEngine() (cgoCrypto.Engine, error) {
	engine, err := cgoCrypto.NewEngine(log.Fields{
		"package": "cgoutils", "module": "crypto", "component": "crypto-engine",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare core cryptography [%w]", err)
	}
	return engine, nil
}

/*
GenerateSealingKey generate a random key usable with NewSealedCodec

	@param ctx context.Context - execution context
	@returns the new key
*/
func GenerateSealingKey(ctx context.Context) ([]byte, error) {
	engine, err := newCryptoEngine()
	if err != nil {
		return nil, err
	}

	aead, err := engine.GetAEAD(ctx, sealingAEAD)
	if err != nil {
		return nil, fmt.Errorf("unable to define AEAD client [%w]", err)
	}
	keyLen := aead.ExpectedKeyLen()

	newKey := make([]byte, keyLen)
	if n, err := engine.GetRNGReader().Read(newKey); err != nil {
		return nil, fmt.Errorf("failed to read %d bytes from RNG [%w]", keyLen, err)
	} else if n != keyLen {
		return nil, fmt.Errorf("did not get %d bytes from RNG, only %d", keyLen, n)
	}
	return newKey, nil
}

/*
NewSealedCodec define a PayloadCodec sealing each field with XChaCha20-Poly1305.

Each field is stored as base64(nonce || ciphertext). The field name is bound as
additional data, so ciphertext moved between fields fails to open.

	@param ctx context.Context - execution context
	@param key []byte - the symmetric key
	@returns codec instance
*/
func NewSealedCodec(ctx context.Context, key []byte) (PayloadCodec, error) {
	engine, err := newCryptoEngine()
	if err != nil {
		return nil, err
	}

	aead, err := engine.GetAEAD(ctx, sealingAEAD)
	if err != nil {
		return nil, fmt.Errorf("unable to define AEAD client [%w]", err)
	}
	if len(key) != aead.ExpectedKeyLen() {
		return nil, fmt.Errorf(
			"sealing key must be %d bytes, got %d", aead.ExpectedKeyLen(), len(key),
		)
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	return &sealedCodec{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "encryption", "component": "sealed-codec"},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		crypto: engine,
		key:    keyCopy,
	}, nil
}

// setupAEAD prepare AEAD. A new random nonce is used when none is given.
func (c *sealedCodec) setupAEAD(ctx context.Context, nonce []byte) (cgoCrypto.AEAD, error) {
	aead, err := c.crypto.GetAEAD(ctx, sealingAEAD)
	if err != nil {
		return nil, fmt.Errorf("unable to define AEAD client [%w]", err)
	}

	// Set the AEAD encryption key
	keyBuffer, err := c.crypto.AllocateSecureCSlice(aead.ExpectedKeyLen())
	if err != nil {
		return nil, fmt.Errorf("failed to init AEAD key buffer [%w]", err)
	}
	keyBufferCore, err := keyBuffer.GetSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to access AEAD key buffer core [%w]", err)
	}
	if copied := copy(keyBufferCore, c.key); copied != aead.ExpectedKeyLen() {
		return nil, fmt.Errorf(
			"failed to fill AEAD key buffer core %d =/= %d", copied, aead.ExpectedKeyLen(),
		)
	}
	if err := aead.SetKey(keyBuffer); err != nil {
		return nil, fmt.Errorf("failed to install AEAD key [%w]", err)
	}

	// Set the AEAD nonce
	if len(nonce) > 0 {
		nonceBuffer, err := c.crypto.AllocateSecureCSlice(aead.ExpectedNonceLen())
		if err != nil {
			return nil, fmt.Errorf("failed to init AEAD nonce buffer [%w]", err)
		}
		nonceBufferCore, err := nonceBuffer.GetSlice()
		if err != nil {
			return nil, fmt.Errorf("failed to access AEAD nonce buffer core [%w]", err)
		}
		if copied := copy(nonceBufferCore, nonce); copied != aead.ExpectedNonceLen() {
			return nil, fmt.Errorf(
				"failed to fill AEAD nonce buffer core %d =/= %d", copied, aead.ExpectedNonceLen(),
			)
		}
		if err := aead.SetNonce(nonceBuffer); err != nil {
			return nil, fmt.Errorf("failed to install AEAD nonce [%w]", err)
		}
	} else {
		nonceBuffer, err := c.crypto.GetRandomBuf(ctx, aead.ExpectedNonceLen())
		if err != nil {
			return nil, fmt.Errorf("failed to init AEAD nonce [%w]", err)
		}
		if err := aead.SetNonce(nonceBuffer); err != nil {
			return nil, fmt.Errorf("failed to install AEAD nonce [%w]", err)
		}
	}

	return aead, nil
}

func (c *sealedCodec) sealField(ctx context.Context, field string, value string) (string, error) {
	aead, err := c.setupAEAD(ctx, nil)
	if err != nil {
		return "", err
	}

	nonce, err := aead.Nonce().GetSlice()
	if err != nil {
		return "", fmt.Errorf("failed to get nonce [%w]", err)
	}
	nonceLen := aead.ExpectedNonceLen()

	plainText := []byte(value)
	output := make([]byte, nonceLen+int(aead.ExpectedCipherLen(int64(len(plainText)))))
	if copied := copy(output, nonce); copied != nonceLen {
		return "", fmt.Errorf("failed to copy nonce %d =/= %d", copied, nonceLen)
	}
	if err := aead.Seal(ctx, 0, plainText, []byte(field), output[nonceLen:]); err != nil {
		return "", fmt.Errorf("failed to encrypt plain text [%w]", err)
	}

	return base64.StdEncoding.EncodeToString(output), nil
}

func (c *sealedCodec) openField(ctx context.Context, field string, value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not base64 [%w]", err)
	}

	aead, err := c.crypto.GetAEAD(ctx, sealingAEAD)
	if err != nil {
		return "", fmt.Errorf("unable to define AEAD client [%w]", err)
	}
	nonceLen := aead.ExpectedNonceLen()
	if len(raw) <= nonceLen {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(raw))
	}

	aead, err = c.setupAEAD(ctx, raw[:nonceLen])
	if err != nil {
		return "", err
	}

	cipherText := raw[nonceLen:]
	plainText := make([]byte, aead.ExpectedPlainTextLen(int64(len(cipherText))))
	if err := aead.Unseal(ctx, 0, cipherText, []byte(field), plainText); err != nil {
		log.WithError(err).WithFields(c.GetLogTagsForContext(ctx)).
			WithField("field", field).
			Debug("Field failed to open")
		return "", fmt.Errorf("failed to decrypt cipher text [%w]", err)
	}

	return string(plainText), nil
}

func (c *sealedCodec) EncodePayload(
	ctx context.Context, plain models.PlainPayload,
) (models.RecordPayload, error) {
	return encodeFields(ctx, plain, c.sealField)
}

func (c *sealedCodec) DecodePayload(
	ctx context.Context, sealed models.RecordPayload,
) (models.PlainPayload, error) {
	return decodeFields(ctx, sealed, c.openField)
}
