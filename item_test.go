package opvault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"strconv"
	"testing"

	vaultcrypto "github.com/go-opvault/opvault/crypto"
)

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return b
}

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(n int64) *int64 { return &n }
func strPtr(s string) *string { return &s }

// baseItemData returns a record with every required field populated.
func baseItemData() itemData {
	return itemData{
		Category: "001",
		Created:  1386214150,
		D:        "ZDEtYmFzZTY0",
		K:        "azEtYmFzZTY0",
		O:        "bzEtYmFzZTY0",
		Tx:       1386214152,
		Updated:  1386214151,
		UUID:     "368A81F1AA1A4DCD94F4A86BA5F5652B",
	}
}

// canonicalBytes builds the expected MAC input by hand: for each present
// field, in fixed order, the field name then the rendered value.
func canonicalBytes(d itemData) []byte {
	var buf bytes.Buffer
	buf.WriteString("category" + d.Category)
	buf.WriteString("created" + strconv.FormatInt(d.Created, 10))
	buf.WriteString("d" + d.D)
	if d.Fave != nil {
		buf.WriteString("fave" + strconv.FormatInt(*d.Fave, 10))
	}
	if d.Folder != nil {
		buf.WriteString("folder" + *d.Folder)
	}
	buf.WriteString("k" + d.K)
	buf.WriteString("o" + d.O)
	if d.Trashed != nil {
		if *d.Trashed {
			buf.WriteString("trashed1")
		} else {
			buf.WriteString("trashed0")
		}
	}
	buf.WriteString("tx" + strconv.FormatInt(d.Tx, 10))
	buf.WriteString("updated" + strconv.FormatInt(d.Updated, 10))
	buf.WriteString("uuid" + d.UUID)
	return buf.Bytes()
}

func TestComputeMAC_CanonicalOrder(t *testing.T) {
	key := randBytes(t, 32)

	cases := []struct {
		name   string
		mutate func(*itemData)
	}{
		{"required only", func(*itemData) {}},
		{"fave set", func(d *itemData) { d.Fave = int64Ptr(3) }},
		{"folder set", func(d *itemData) { d.Folder = strPtr("9E17F5E9B8EC4BD5BA71A72E54677DCA") }},
		{"trashed true", func(d *itemData) { d.Trashed = boolPtr(true) }},
		{"trashed false", func(d *itemData) { d.Trashed = boolPtr(false) }},
		{"all optional", func(d *itemData) {
			d.Fave = int64Ptr(508)
			d.Folder = strPtr("9E17F5E9B8EC4BD5BA71A72E54677DCA")
			d.Trashed = boolPtr(true)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := baseItemData()
			tc.mutate(&d)

			want := vaultcrypto.HMACSHA256(key, canonicalBytes(d))
			got := d.computeMAC(vaultcrypto.NewHMACSHA256(key))
			if !bytes.Equal(got, want) {
				t.Error("computed MAC differs from canonical concatenation")
			}
		})
	}
}

// TestComputeMAC_TrashedRendering pins the quirk most likely to break
// interoperability: the boolean is fed to the MAC as "0"/"1", never as
// "false"/"true", and contributes nothing when absent.
func TestComputeMAC_TrashedRendering(t *testing.T) {
	key := randBytes(t, 32)

	d := baseItemData()
	absent := d.computeMAC(vaultcrypto.NewHMACSHA256(key))

	d.Trashed = boolPtr(false)
	asZero := d.computeMAC(vaultcrypto.NewHMACSHA256(key))
	if bytes.Equal(absent, asZero) {
		t.Error("trashed=false contributed nothing to the MAC")
	}
	if want := vaultcrypto.HMACSHA256(key, canonicalBytes(d)); !bytes.Equal(asZero, want) {
		t.Error("trashed=false not rendered as \"0\"")
	}

	d.Trashed = boolPtr(true)
	asOne := d.computeMAC(vaultcrypto.NewHMACSHA256(key))
	if bytes.Equal(asZero, asOne) {
		t.Error("trashed=true and trashed=false produced the same MAC")
	}
}

func TestComputeMAC_ExcludesHmacField(t *testing.T) {
	key := randBytes(t, 32)

	d := baseItemData()
	without := d.computeMAC(vaultcrypto.NewHMACSHA256(key))
	d.Hmac = "c29tZXRoaW5nIGVsc2U="
	with := d.computeMAC(vaultcrypto.NewHMACSHA256(key))

	if !bytes.Equal(without, with) {
		t.Error("hmac field leaked into its own MAC input")
	}
}

func TestParseCategory_AllKnownCodes(t *testing.T) {
	codes := []string{
		"001", "002", "003", "004", "005", "099",
		"100", "101", "102", "103", "104", "105",
		"106", "107", "108", "109", "110", "111",
	}
	for _, code := range codes {
		c, err := parseCategory(code)
		if err != nil {
			t.Errorf("code %s: %v", code, err)
			continue
		}
		if c.Name() == "" {
			t.Errorf("code %s has no name", code)
		}
	}
}

func TestParseCategory_UnknownCode(t *testing.T) {
	for _, code := range []string{"000", "006", "042", "112", "Login", ""} {
		if _, err := parseCategory(code); !errors.Is(err, ErrUnknownCategory) {
			t.Errorf("code %q: err = %v, want ErrUnknownCategory", code, err)
		}
	}
}

// sealItemKey builds a "k" blob for the given 64 bytes of item key
// material: IV, four blocks of AES-CBC ciphertext, then the trailing MAC
// under the master verification key.
func sealItemKey(t *testing.T, master *MasterKey, material []byte) []byte {
	t.Helper()
	iv := randBytes(t, aes.BlockSize)
	block, err := aes.NewCipher(master.Encryption())
	if err != nil {
		t.Fatal(err)
	}
	ciphertext := make([]byte, len(material))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, material)

	blob := append(append([]byte{}, iv...), ciphertext...)
	return append(blob, vaultcrypto.HMACSHA256(master.Verification(), blob)...)
}

func testMasterKey(t *testing.T) *MasterKey {
	t.Helper()
	k, err := newKey(randBytes(t, KeySize))
	if err != nil {
		t.Fatal(err)
	}
	return &MasterKey{k}
}

func TestItemKey_Unwrap(t *testing.T) {
	master := testMasterKey(t)
	material := randBytes(t, KeySize)

	item := &Item{k: sealItemKey(t, master, material), vault: &UnlockedVault{masterKey: master}}
	key, err := item.key()
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if !bytes.Equal(key.Encryption(), material[:32]) || !bytes.Equal(key.Verification(), material[32:]) {
		t.Error("unwrapped key differs from the sealed material")
	}
}

func TestItemKey_TamperedBlob(t *testing.T) {
	master := testMasterKey(t)
	blob := sealItemKey(t, master, randBytes(t, KeySize))

	for _, i := range []int{0, 20, len(blob) - 1} {
		blob[i] ^= 0x01
		item := &Item{k: blob, vault: &UnlockedVault{masterKey: master}}
		if _, err := item.key(); !errors.Is(err, ErrItemVerify) {
			t.Errorf("byte %d flipped: err = %v, want ErrItemVerify", i, err)
		}
		blob[i] ^= 0x01
	}
}

func TestItemKey_WrongMasterKey(t *testing.T) {
	blob := sealItemKey(t, testMasterKey(t), randBytes(t, KeySize))

	item := &Item{k: blob, vault: &UnlockedVault{masterKey: testMasterKey(t)}}
	if _, err := item.key(); !errors.Is(err, ErrItemVerify) {
		t.Errorf("err = %v, want ErrItemVerify", err)
	}
}
