package opvault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	vaultcrypto "github.com/go-opvault/opvault/crypto"
	"github.com/go-opvault/opvault/opdata01"
)

// profileData mirrors the JSON in profile.js; field names match the file
// exactly.
type profileData struct {
	LastUpdatedBy string  `json:"lastUpdatedBy"`
	UpdatedAt     int64   `json:"updatedAt"`
	ProfileName   string  `json:"profileName"`
	Salt          string  `json:"salt"`
	PasswordHint  *string `json:"passwordHint"`
	MasterKey     string  `json:"masterKey"`
	Iterations    uint64  `json:"iterations"`
	UUID          string  `json:"uuid"`
	OverviewKey   string  `json:"overviewKey"`
	CreatedAt     int64   `json:"createdAt"`
}

// Profile is the vault's top-level metadata together with the two sealed
// key blobs. MasterKeyBlob and OverviewKeyBlob are opdata01 envelopes
// whose plaintexts are seeds; they only become usable keys through
// unsealKeys with the right password.
type Profile struct {
	LastUpdatedBy   string
	UpdatedAt       int64
	ProfileName     string
	Salt            []byte
	PasswordHint    string
	MasterKeyBlob   []byte
	OverviewKeyBlob []byte
	Iterations      uint64
	UUID            string
	CreatedAt       int64
}

// readProfile loads and decodes default/profile.js. A missing profile is a
// hard error: without it there is nothing to unlock.
func readProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opvault: read profile: %w", err)
	}
	payload, err := stripFrame(raw, "var profile=", ";")
	if err != nil {
		return nil, err
	}

	var data profileData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("opvault: decode profile: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(data.Salt)
	if err != nil {
		return nil, fmt.Errorf("opvault: profile salt: %w", err)
	}
	masterBlob, err := base64.StdEncoding.DecodeString(data.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("opvault: profile masterKey: %w", err)
	}
	overviewBlob, err := base64.StdEncoding.DecodeString(data.OverviewKey)
	if err != nil {
		return nil, fmt.Errorf("opvault: profile overviewKey: %w", err)
	}

	p := &Profile{
		LastUpdatedBy:   data.LastUpdatedBy,
		UpdatedAt:       data.UpdatedAt,
		ProfileName:     data.ProfileName,
		Salt:            salt,
		MasterKeyBlob:   masterBlob,
		OverviewKeyBlob: overviewBlob,
		Iterations:      data.Iterations,
		UUID:            data.UUID,
		CreatedAt:       data.CreatedAt,
	}
	if data.PasswordHint != nil {
		p.PasswordHint = *data.PasswordHint
	}
	return p, nil
}

// unsealKeys derives the password key with PBKDF2-HMAC-SHA512 and peels
// the master and overview pairs out of their envelopes. A wrong password
// fails the master blob's MAC, so it surfaces as opdata01.ErrInvalidHmac;
// the format gives no way to tell that apart from tampering.
func (p *Profile) unsealKeys(password []byte) (*MasterKey, *OverviewKey, error) {
	derived := vaultcrypto.DeriveKey(password, p.Salt, int(p.Iterations))
	decryptKey, macKey := derived[:32], derived[32:]

	master, err := unsealKey(p.MasterKeyBlob, decryptKey, macKey)
	if err != nil {
		return nil, nil, fmt.Errorf("opvault: unseal master key: %w", err)
	}
	overview, err := unsealKey(p.OverviewKeyBlob, decryptKey, macKey)
	if err != nil {
		return nil, nil, fmt.Errorf("opvault: unseal overview key: %w", err)
	}
	return &MasterKey{master}, &OverviewKey{overview}, nil
}

// unsealKey opens one sealed key blob: decrypt the seed out of its
// envelope, stretch it through SHA-512, and split the result into an
// encryption/verification pair.
func unsealKey(blob, decryptKey, macKey []byte) (Key, error) {
	seed, err := opdata01.Decrypt(blob, decryptKey, macKey)
	if err != nil {
		return Key{}, err
	}
	return newKey(vaultcrypto.SHA512(seed))
}
