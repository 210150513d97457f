package opvault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/go-opvault/opvault/opcldat"
	"github.com/go-opvault/opvault/opdata01"
)

// attachmentData mirrors the JSON metadata block inside an attachment
// file; field names match the file exactly.
type attachmentData struct {
	ItemUUID     string `json:"itemUUID"`
	UUID         string `json:"uuid"`
	ContentsSize uint64 `json:"contentsSize"`
	External     *bool  `json:"external"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
	TxTimestamp  int64  `json:"txTimestamp"`
	Overview     string `json:"overview"`
}

// attachmentRecord is what the vault keeps per attachment after the eager
// header+metadata read: the decoded metadata and the path to come back to
// for the icon and content.
type attachmentRecord struct {
	uuid         uuid.UUID
	itemUUID     uuid.UUID
	contentsSize uint64
	external     bool
	createdAt    int64
	updatedAt    int64
	txTimestamp  int64
	overview     []byte
	path         string
}

// Attachment is a handle on one attachment of one item. The icon and
// content are read and decrypted only when asked for; each call opens the
// file, seeks to the computed offset, and closes it on the way out.
type Attachment struct {
	rec  *attachmentRecord
	item *Item
}

// UUID returns the attachment's identifier.
func (a *Attachment) UUID() uuid.UUID { return a.rec.uuid }

// ItemUUID returns the identifier of the item this attachment belongs to.
func (a *Attachment) ItemUUID() uuid.UUID { return a.rec.itemUUID }

// ContentsSize returns the decrypted content size recorded in the
// metadata.
func (a *Attachment) ContentsSize() uint64 { return a.rec.contentsSize }

// External reports whether the metadata marks the attachment external.
func (a *Attachment) External() bool { return a.rec.external }

// CreatedAt returns the creation time as seconds since the epoch.
func (a *Attachment) CreatedAt() int64 { return a.rec.createdAt }

// UpdatedAt returns the last-modified time as seconds since the epoch.
func (a *Attachment) UpdatedAt() int64 { return a.rec.updatedAt }

// TxTimestamp returns the attachment's transaction timestamp.
func (a *Attachment) TxTimestamp() int64 { return a.rec.txTimestamp }

// DecryptOverview decrypts the attachment's overview from the metadata
// under the overview key.
func (a *Attachment) DecryptOverview() ([]byte, error) {
	ov := a.item.vault.overviewKey
	plain, err := opdata01.Decrypt(a.rec.overview, ov.Encryption(), ov.Verification())
	if err != nil {
		return nil, fmt.Errorf("opvault: attachment %s overview: %w", a.rec.uuid, err)
	}
	return plain, nil
}

// DecryptIcon reads the icon envelope back out of the file and decrypts
// it under the owning item's key.
func (a *Attachment) DecryptIcon() ([]byte, error) {
	f, err := os.Open(a.rec.path)
	if err != nil {
		return nil, fmt.Errorf("opvault: attachment %s: %w", a.rec.uuid, err)
	}
	defer f.Close()

	header, err := opcldat.ReadHeader(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(int64(opcldat.HeaderSize)+int64(header.MetadataSize), io.SeekStart); err != nil {
		return nil, fmt.Errorf("opvault: attachment %s: %w", a.rec.uuid, err)
	}
	envelope := make([]byte, header.IconSize)
	if _, err := io.ReadFull(f, envelope); err != nil {
		return nil, fmt.Errorf("opvault: attachment %s icon: %w", a.rec.uuid, err)
	}
	return a.decryptWithItemKey(envelope, "icon")
}

// DecryptContent reads the content envelope, everything after the icon,
// and decrypts it under the owning item's key.
func (a *Attachment) DecryptContent() ([]byte, error) {
	f, err := os.Open(a.rec.path)
	if err != nil {
		return nil, fmt.Errorf("opvault: attachment %s: %w", a.rec.uuid, err)
	}
	defer f.Close()

	header, err := opcldat.ReadHeader(f)
	if err != nil {
		return nil, err
	}
	offset := int64(opcldat.HeaderSize) + int64(header.MetadataSize) + int64(header.IconSize)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("opvault: attachment %s: %w", a.rec.uuid, err)
	}
	envelope, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("opvault: attachment %s content: %w", a.rec.uuid, err)
	}
	return a.decryptWithItemKey(envelope, "content")
}

func (a *Attachment) decryptWithItemKey(envelope []byte, what string) ([]byte, error) {
	key, err := a.item.key()
	if err != nil {
		return nil, err
	}
	plain, err := opdata01.Decrypt(envelope, key.Encryption(), key.Verification())
	if err != nil {
		return nil, fmt.Errorf("opvault: attachment %s %s: %w", a.rec.uuid, what, err)
	}
	return plain, nil
}

// readAttachments scans dir, non-recursively, for *.attachment files and
// reads each one's header and metadata. Icon and content are left on disk
// for the lazy accessors. An attachment whose item never shows up stays in
// the returned map, just unreferenced.
func readAttachments(dir string) (map[uuid.UUID]*attachmentRecord, error) {
	records := make(map[uuid.UUID]*attachmentRecord)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("opvault: scan attachments: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".attachment") {
			continue
		}
		rec, err := readAttachment(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records[rec.uuid] = rec
	}
	return records, nil
}

// readAttachment reads one attachment file's header and metadata.
func readAttachment(path string) (*attachmentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opvault: read attachment: %w", err)
	}
	defer f.Close()

	header, err := opcldat.ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("opvault: attachment %s: %w", filepath.Base(path), err)
	}
	metadata := make([]byte, header.MetadataSize)
	if _, err := io.ReadFull(f, metadata); err != nil {
		return nil, fmt.Errorf("opvault: attachment %s metadata: %w", filepath.Base(path), err)
	}

	var data attachmentData
	if err := json.Unmarshal(metadata, &data); err != nil {
		return nil, fmt.Errorf("opvault: attachment %s metadata: %w", filepath.Base(path), err)
	}
	id, err := parseUUID(data.UUID)
	if err != nil {
		return nil, err
	}
	itemID, err := parseUUID(data.ItemUUID)
	if err != nil {
		return nil, err
	}
	overview, err := base64.StdEncoding.DecodeString(data.Overview)
	if err != nil {
		return nil, fmt.Errorf("opvault: attachment %s overview: %w", id, err)
	}

	return &attachmentRecord{
		uuid:         id,
		itemUUID:     itemID,
		contentsSize: data.ContentsSize,
		external:     data.External != nil && *data.External,
		createdAt:    data.CreatedAt,
		updatedAt:    data.UpdatedAt,
		txTimestamp:  data.TxTimestamp,
		overview:     overview,
		path:         path,
	}, nil
}
