package domain

import (
	"encoding/json"

	"github.com/quietwire/dmcore/internal/errors"
)

// envelopeWire is the JSON shape envelopes travel and rest in. Byte fields
// serialize as standard base64.
type envelopeWire struct {
	Ciphertext         []byte `json:"ciphertext"`
	Nonce              []byte `json:"nonce"`
	WrappedKey         []byte `json:"wrapped_key"`
	KeyNonce           []byte `json:"key_nonce"`
	EphemeralPublicKey []byte `json:"ephemeral_public_key"`
	Algorithm          string `json:"algorithm"`
}

// EncodeEnvelope serializes an envelope for storage or transport.
func EncodeEnvelope(envelope *Envelope) ([]byte, error) {
	if envelope == nil {
		return nil, errors.Wrap(ErrEncryptionFailed, "nil envelope")
	}
	data, err := json.Marshal(envelopeWire{
		Ciphertext:         envelope.Ciphertext,
		Nonce:              envelope.Nonce,
		WrappedKey:         envelope.WrappedKey,
		KeyNonce:           envelope.KeyNonce,
		EphemeralPublicKey: envelope.EphemeralPublicKey,
		Algorithm:          envelope.Algorithm,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode envelope")
	}
	return data, nil
}

// DecodeEnvelope parses a serialized envelope. Malformed payloads map to the
// generic decryption failure so callers cannot distinguish corruption from a
// wrong key.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, ErrDecryptionFailed
	}
	return &Envelope{
		Ciphertext:         wire.Ciphertext,
		Nonce:              wire.Nonce,
		WrappedKey:         wire.WrappedKey,
		KeyNonce:           wire.KeyNonce,
		EphemeralPublicKey: wire.EphemeralPublicKey,
		Algorithm:          wire.Algorithm,
	}, nil
}
