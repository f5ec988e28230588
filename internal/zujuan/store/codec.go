package store

import (
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/pkg/cryptox"
)

// Codec turns a session into the blob every driver stores. With a Sealer the
// blob is encrypted and authenticated; without one it is plain JSON.
type Codec struct {
	Sealer *cryptox.Sealer
}

func (c Codec) Encode(s domain.Session) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if c.Sealer == nil {
		return raw, nil
	}
	return c.Sealer.Seal(raw)
}

func (c Codec) Decode(blob []byte) (domain.Session, error) {
	raw := blob
	if c.Sealer != nil {
		var err error
		raw, err = c.Sealer.Open(blob)
		if err != nil {
			return domain.Session{}, fmt.Errorf("open session: %w", err)
		}
	}

	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
