package opvault

import (
	"crypto/aes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	vaultcrypto "github.com/go-opvault/opvault/crypto"
	"github.com/go-opvault/opvault/opdata01"
)

// Category is the string code classifying an item.
type Category string

// Known categories, per the published OPVault design.
const (
	CategoryLogin           Category = "001"
	CategoryCreditCard      Category = "002"
	CategorySecureNote      Category = "003"
	CategoryIdentity        Category = "004"
	CategoryPassword        Category = "005"
	CategoryTombstone       Category = "099"
	CategorySoftwareLicense Category = "100"
	CategoryBankAccount     Category = "101"
	CategoryDatabase        Category = "102"
	CategoryDriverLicense   Category = "103"
	CategoryOutdoorLicense  Category = "104"
	CategoryMembership      Category = "105"
	CategoryPassport        Category = "106"
	CategoryRewards         Category = "107"
	CategorySSN             Category = "108"
	CategoryRouter          Category = "109"
	CategoryServer          Category = "110"
	CategoryEmail           Category = "111"
)

var categoryNames = map[Category]string{
	CategoryLogin:           "Login",
	CategoryCreditCard:      "Credit Card",
	CategorySecureNote:      "Secure Note",
	CategoryIdentity:        "Identity",
	CategoryPassword:        "Password",
	CategoryTombstone:       "Tombstone",
	CategorySoftwareLicense: "Software License",
	CategoryBankAccount:     "Bank Account",
	CategoryDatabase:        "Database",
	CategoryDriverLicense:   "Driver License",
	CategoryOutdoorLicense:  "Outdoor License",
	CategoryMembership:      "Membership",
	CategoryPassport:        "Passport",
	CategoryRewards:         "Rewards",
	CategorySSN:             "SSN",
	CategoryRouter:          "Router",
	CategoryServer:          "Server",
	CategoryEmail:           "Email",
}

// Name returns the category's display name, or "" for an unknown code.
func (c Category) Name() string { return categoryNames[c] }

func parseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categoryNames[c]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// itemData mirrors one item record in a band file. The base64 fields stay
// as text here because the record MAC covers the base64 text, not the
// decoded bytes.
type itemData struct {
	Category string  `json:"category"`
	Created  int64   `json:"created"`
	D        string  `json:"d"`
	Fave     *int64  `json:"fave"`
	Folder   *string `json:"folder"`
	Hmac     string  `json:"hmac"`
	K        string  `json:"k"`
	O        string  `json:"o"`
	Trashed  *bool   `json:"trashed"`
	Tx       int64   `json:"tx"`
	Updated  int64   `json:"updated"`
	UUID     string  `json:"uuid"`
}

// computeMAC feeds the record's fields to h in the canonical order: for
// each field, the field name's bytes then the value's bytes. Integers are
// rendered as decimal text, trashed as "0"/"1", base64 fields as their
// base64 text. Optional fields contribute nothing when absent, and hmac
// itself is excluded. Reordering anything here, or rendering trashed as
// "true"/"false", silently fails verification against real vaults.
func (d *itemData) computeMAC(h hash.Hash) []byte {
	field := func(name, value string) {
		io.WriteString(h, name)
		io.WriteString(h, value)
	}
	intField := func(name string, value int64) {
		field(name, strconv.FormatInt(value, 10))
	}

	field("category", d.Category)
	intField("created", d.Created)
	field("d", d.D)
	if d.Fave != nil {
		intField("fave", *d.Fave)
	}
	if d.Folder != nil {
		field("folder", *d.Folder)
	}
	field("k", d.K)
	field("o", d.O)
	if d.Trashed != nil {
		v := "0"
		if *d.Trashed {
			v = "1"
		}
		field("trashed", v)
	}
	intField("tx", d.Tx)
	intField("updated", d.Updated)
	field("uuid", d.UUID)
	return h.Sum(nil)
}

// Item is one verified item record. Overview, detail and attachments stay
// encrypted until the corresponding method is called; the handle carries
// the vault references needed to decrypt them on demand.
type Item struct {
	uuid     uuid.UUID
	category Category
	created  int64
	updated  int64
	tx       int64
	fave     *int64
	folder   uuid.UUID
	trashed  bool

	k []byte
	o []byte
	d []byte

	attachments []uuid.UUID
	vault       *UnlockedVault
}

// UUID returns the item's identifier.
func (it *Item) UUID() uuid.UUID { return it.uuid }

// Category returns the item's category.
func (it *Item) Category() Category { return it.category }

// Created returns the creation time as seconds since the epoch.
func (it *Item) Created() int64 { return it.created }

// Updated returns the last-modified time as seconds since the epoch.
func (it *Item) Updated() int64 { return it.updated }

// Tx returns the item's transaction timestamp.
func (it *Item) Tx() int64 { return it.tx }

// Fave returns the favorite ordering value and whether one is set.
func (it *Item) Fave() (int64, bool) {
	if it.fave == nil {
		return 0, false
	}
	return *it.fave, true
}

// Trashed reports whether the item is in the trash.
func (it *Item) Trashed() bool { return it.trashed }

// Folder resolves the item's folder, if it has one.
func (it *Item) Folder() (*Folder, bool) {
	if it.folder == uuid.Nil {
		return nil, false
	}
	f, ok := it.vault.folders[it.folder]
	return f, ok
}

// key unwraps the item's per-item key: verify the trailing MAC over
// IV‖ciphertext under the master verification key, then decrypt the
// 64 bytes of key material. Derivation is lazy and repeated per call; the
// unwrap is four AES blocks and not worth caching key material for.
func (it *Item) key() (*ItemKey, error) {
	data, ok := vaultcrypto.VerifyTrailingMAC(it.k, it.vault.masterKey.Verification())
	if !ok {
		return nil, fmt.Errorf("opvault: item %s: %w", it.uuid, ErrItemVerify)
	}
	if len(data) < aes.BlockSize {
		return nil, fmt.Errorf("opvault: item %s: %w", it.uuid, ErrItemVerify)
	}
	material, err := vaultcrypto.DecryptAESCBCNoPad(it.vault.masterKey.Encryption(), data[:aes.BlockSize], data[aes.BlockSize:])
	if err != nil {
		return nil, fmt.Errorf("opvault: item %s key: %w", it.uuid, err)
	}
	k, err := newKey(material)
	if err != nil {
		return nil, fmt.Errorf("opvault: item %s key: %w", it.uuid, err)
	}
	return &ItemKey{k}, nil
}

// OverviewData decrypts the item's overview and returns the plaintext
// bytes.
func (it *Item) OverviewData() ([]byte, error) {
	ov := it.vault.overviewKey
	plain, err := opdata01.Decrypt(it.o, ov.Encryption(), ov.Verification())
	if err != nil {
		return nil, fmt.Errorf("opvault: item %s overview: %w", it.uuid, err)
	}
	return plain, nil
}

// Overview decrypts and parses the item's overview.
func (it *Item) Overview() (*Overview, error) {
	plain, err := it.OverviewData()
	if err != nil {
		return nil, err
	}
	var ov Overview
	if err := json.Unmarshal(plain, &ov); err != nil {
		return nil, fmt.Errorf("opvault: item %s overview: %w", it.uuid, err)
	}
	return &ov, nil
}

// DetailData unwraps the item's key and decrypts the detail payload,
// returning the plaintext bytes.
func (it *Item) DetailData() ([]byte, error) {
	key, err := it.key()
	if err != nil {
		return nil, err
	}
	plain, err := opdata01.Decrypt(it.d, key.Encryption(), key.Verification())
	if err != nil {
		return nil, fmt.Errorf("opvault: item %s detail: %w", it.uuid, err)
	}
	return plain, nil
}

// Detail decrypts the item's detail and parses it into the shape matching
// the item's category.
func (it *Item) Detail() (Detail, error) {
	plain, err := it.DetailData()
	if err != nil {
		return nil, err
	}

	var detail Detail
	switch it.category {
	case CategoryLogin:
		detail = new(LoginDetail)
	case CategoryPassword:
		detail = new(PasswordDetail)
	default:
		detail = new(GenericDetail)
	}
	if err := json.Unmarshal(plain, detail); err != nil {
		return nil, fmt.Errorf("opvault: item %s detail: %w", it.uuid, err)
	}
	return detail, nil
}

// Attachment returns the handle for one of the item's attachments.
func (it *Item) Attachment(id uuid.UUID) (*Attachment, bool) {
	for _, aid := range it.attachments {
		if aid == id {
			return &Attachment{rec: it.vault.attachments[aid], item: it}, true
		}
	}
	return nil, false
}

// Attachments yields a handle for each attachment referencing this item,
// in no particular order.
func (it *Item) Attachments() iter.Seq[*Attachment] {
	return func(yield func(*Attachment) bool) {
		for _, aid := range it.attachments {
			if !yield(&Attachment{rec: it.vault.attachments[aid], item: it}) {
				return
			}
		}
	}
}

// bandDigits are the hex digits naming the sixteen band files. Items are
// nominally partitioned by the first digit of their uuid, but the loader
// just reads every band and trusts nothing about placement.
const bandDigits = "0123456789ABCDEF"

// readItems loads every band file and returns the verified items.
func readItems(dir string, overviewKey *OverviewKey) (map[uuid.UUID]*Item, error) {
	items := make(map[uuid.UUID]*Item)
	for _, digit := range bandDigits {
		path := filepath.Join(dir, fmt.Sprintf("band_%c.js", digit))
		if err := readBand(path, overviewKey, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// readBand loads one band file into items. A missing band is an empty
// band. Records whose MAC does not verify are dropped without error: the
// format's writers produce partially written bands, and surfacing those
// would poison every iteration over an otherwise healthy vault. All other
// failures propagate.
func readBand(path string, overviewKey *OverviewKey, items map[uuid.UUID]*Item) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opvault: read band: %w", err)
	}
	payload, err := stripFrame(raw, "ld(", ");")
	if err != nil {
		return err
	}

	var datas map[string]itemData
	if err := json.Unmarshal(payload, &datas); err != nil {
		return fmt.Errorf("opvault: decode band %s: %w", filepath.Base(path), err)
	}

	for _, d := range datas {
		want, err := base64.StdEncoding.DecodeString(d.Hmac)
		if err != nil {
			return fmt.Errorf("opvault: item %s hmac: %w", d.UUID, err)
		}
		got := d.computeMAC(vaultcrypto.NewHMACSHA256(overviewKey.Verification()))
		if !vaultcrypto.EqualMAC(want, got) {
			continue
		}

		item, err := newItem(&d)
		if err != nil {
			return err
		}
		items[item.uuid] = item
	}
	return nil
}

// newItem decodes a verified record into an Item.
func newItem(d *itemData) (*Item, error) {
	category, err := parseCategory(d.Category)
	if err != nil {
		return nil, fmt.Errorf("opvault: item %s: %w", d.UUID, err)
	}
	id, err := parseUUID(d.UUID)
	if err != nil {
		return nil, err
	}
	folder := uuid.Nil
	if d.Folder != nil {
		if folder, err = parseUUID(*d.Folder); err != nil {
			return nil, err
		}
	}

	k, err := base64.StdEncoding.DecodeString(d.K)
	if err != nil {
		return nil, fmt.Errorf("opvault: item %s k: %w", id, err)
	}
	o, err := base64.StdEncoding.DecodeString(d.O)
	if err != nil {
		return nil, fmt.Errorf("opvault: item %s o: %w", id, err)
	}
	detail, err := base64.StdEncoding.DecodeString(d.D)
	if err != nil {
		return nil, fmt.Errorf("opvault: item %s d: %w", id, err)
	}

	return &Item{
		uuid:     id,
		category: category,
		created:  d.Created,
		updated:  d.Updated,
		tx:       d.Tx,
		fave:     d.Fave,
		folder:   folder,
		trashed:  d.Trashed != nil && *d.Trashed,
		k:        k,
		o:        o,
		d:        detail,
	}, nil
}
