package opvault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"

	"github.com/go-opvault/opvault/opdata01"
)

// folderData mirrors one folder record in folders.js.
type folderData struct {
	Created  int64  `json:"created"`
	Overview string `json:"overview"`
	Smart    *bool  `json:"smart"`
	Tx       int64  `json:"tx"`
	Updated  int64  `json:"updated"`
	UUID     string `json:"uuid"`
}

// Folder is one folder record. Its overview stays encrypted until
// Overview is called.
type Folder struct {
	uuid     uuid.UUID
	created  int64
	updated  int64
	tx       int64
	smart    bool
	overview []byte

	overviewKey *OverviewKey
}

// UUID returns the folder's identifier.
func (f *Folder) UUID() uuid.UUID { return f.uuid }

// Created returns the creation time as seconds since the epoch.
func (f *Folder) Created() int64 { return f.created }

// Updated returns the last-modified time as seconds since the epoch.
func (f *Folder) Updated() int64 { return f.updated }

// Tx returns the folder's transaction timestamp.
func (f *Folder) Tx() int64 { return f.tx }

// Smart reports whether this is a smart folder. Absent in the file means
// false.
func (f *Folder) Smart() bool { return f.smart }

// Overview decrypts and parses the folder's overview under the overview
// key.
func (f *Folder) Overview() (*FolderOverview, error) {
	plain, err := opdata01.Decrypt(f.overview, f.overviewKey.Encryption(), f.overviewKey.Verification())
	if err != nil {
		return nil, fmt.Errorf("opvault: folder %s overview: %w", f.uuid, err)
	}
	var ov FolderOverview
	if err := json.Unmarshal(plain, &ov); err != nil {
		return nil, fmt.Errorf("opvault: folder %s overview: %w", f.uuid, err)
	}
	return &ov, nil
}

// readFolders loads default/folders.js. The file is simply absent from
// vaults without folders, so a missing file yields an empty map.
func readFolders(path string, overviewKey *OverviewKey) (map[uuid.UUID]*Folder, error) {
	folders := make(map[uuid.UUID]*Folder)

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return folders, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opvault: read folders: %w", err)
	}
	payload, err := stripFrame(raw, "loadFolders(", ");")
	if err != nil {
		return nil, err
	}

	var datas map[string]folderData
	if err := json.Unmarshal(payload, &datas); err != nil {
		return nil, fmt.Errorf("opvault: decode folders: %w", err)
	}

	for _, d := range datas {
		id, err := parseUUID(d.UUID)
		if err != nil {
			return nil, err
		}
		overview, err := base64.StdEncoding.DecodeString(d.Overview)
		if err != nil {
			return nil, fmt.Errorf("opvault: folder %s overview: %w", id, err)
		}
		folders[id] = &Folder{
			uuid:        id,
			created:     d.Created,
			updated:     d.Updated,
			tx:          d.Tx,
			smart:       d.Smart != nil && *d.Smart,
			overview:    overview,
			overviewKey: overviewKey,
		}
	}
	return folders, nil
}
