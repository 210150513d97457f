// Package opvault reads the OPVault password-vault directory layout:
// opening a vault, unsealing its key hierarchy from the master password,
// and exposing decrypted item overviews, details, folders, and per-item
// attachments.
//
// The library is read-only and synchronous. Opening loads only the
// profile; unlocking unseals the two vault keys and verifies and loads
// every record eagerly but decrypts no record payload — each overview,
// detail, icon and content is decrypted on demand through its handle. Only the profile named "default" is
// supported, which is the only profile the format has ever shipped.
package opvault

import (
	"iter"
	"path/filepath"

	"github.com/google/uuid"
)

// LockedVault is a vault whose profile has been read but whose keys are
// still sealed. It holds no secrets beyond what is on disk.
type LockedVault struct {
	dir     string
	profile *Profile
}

// Open reads the profile of the vault at path. The path is the vault
// root, the directory containing the "default" profile directory.
func Open(path string) (*LockedVault, error) {
	dir := filepath.Join(path, "default")
	profile, err := readProfile(filepath.Join(dir, "profile.js"))
	if err != nil {
		return nil, err
	}
	return &LockedVault{dir: dir, profile: profile}, nil
}

// Profile returns the vault's profile metadata.
func (lv *LockedVault) Profile() *Profile { return lv.profile }

// Unlock derives the password key, unseals the master and overview keys,
// and loads folders, items and attachments into an UnlockedVault. A wrong
// password surfaces as opdata01.ErrInvalidHmac from the master key blob.
//
// Item records whose MAC does not verify under the overview key are
// dropped here and never surface; every item reachable from the returned
// vault has a freshly verified MAC.
func (lv *LockedVault) Unlock(password []byte) (*UnlockedVault, error) {
	master, overview, err := lv.profile.unsealKeys(password)
	if err != nil {
		return nil, err
	}

	folders, err := readFolders(filepath.Join(lv.dir, "folders.js"), overview)
	if err != nil {
		return nil, err
	}
	items, err := readItems(lv.dir, overview)
	if err != nil {
		return nil, err
	}
	attachments, err := readAttachments(lv.dir)
	if err != nil {
		return nil, err
	}

	v := &UnlockedVault{
		profile:     lv.profile,
		masterKey:   master,
		overviewKey: overview,
		folders:     folders,
		items:       items,
		attachments: attachments,
	}
	for _, item := range items {
		item.vault = v
	}
	// Link attachments to their items by the metadata's itemUUID. An
	// attachment naming an absent item stays in the map, unreferenced.
	for id, rec := range attachments {
		if item, ok := items[rec.itemUUID]; ok {
			item.attachments = append(item.attachments, id)
		}
	}
	return v, nil
}

// UnlockedVault is the decrypted view of a vault. It is immutable after
// construction: the maps are never modified, and every Item and
// Attachment handle shares the vault's two long-lived keys.
type UnlockedVault struct {
	profile     *Profile
	masterKey   *MasterKey
	overviewKey *OverviewKey
	folders     map[uuid.UUID]*Folder
	items       map[uuid.UUID]*Item
	attachments map[uuid.UUID]*attachmentRecord
}

// Profile returns the vault's profile metadata.
func (v *UnlockedVault) Profile() *Profile { return v.profile }

// Item returns the item with the given uuid, if present.
func (v *UnlockedVault) Item(id uuid.UUID) (*Item, bool) {
	item, ok := v.items[id]
	return item, ok
}

// Items yields every item, in no particular order.
func (v *UnlockedVault) Items() iter.Seq[*Item] {
	return func(yield func(*Item) bool) {
		for _, item := range v.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Folder returns the folder with the given uuid, if present.
func (v *UnlockedVault) Folder(id uuid.UUID) (*Folder, bool) {
	folder, ok := v.folders[id]
	return folder, ok
}

// Folders yields every folder, in no particular order.
func (v *UnlockedVault) Folders() iter.Seq[*Folder] {
	return func(yield func(*Folder) bool) {
		for _, folder := range v.folders {
			if !yield(folder) {
				return
			}
		}
	}
}
