package vault

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
	"github.com/FSM1/cipher-box-sub011/internal/ipns"
)

// ChildKind discriminates the entries of a folder's decrypted metadata.
type ChildKind string

const (
	KindFolder ChildKind = "folder"
	KindFile   ChildKind = "file"
)

var ErrAmbiguousChild = errors.New("vault: child entry does not match its declared type")

// Child is the tagged union of a folder's children. Exactly one of Folder
// and File is set, matching Kind.
type Child struct {
	Kind   ChildKind    `json:"type"`
	Folder *FolderEntry `json:"folder,omitempty"`
	File   *FilePointer `json:"file,omitempty"`
}

// Validate rejects hybrid shapes where the payload disagrees with the tag.
func (c *Child) Validate() error {
	switch c.Kind {
	case KindFolder:
		if c.Folder == nil || c.File != nil {
			return ErrAmbiguousChild
		}
	case KindFile:
		if c.File == nil || c.Folder != nil {
			return ErrAmbiguousChild
		}
	default:
		return fmt.Errorf("vault: unknown child kind %q", c.Kind)
	}
	return nil
}

// FolderEntry is a subfolder reference living inside its parent's decrypted
// metadata. Its IPNS keypair and AES key are random; recovery happens by
// walking the tree from the vault anchor, never by re-derivation.
type FolderEntry struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	IPNSName                string    `json:"ipnsName"`
	IPNSPrivateKeyEncrypted []byte    `json:"ipnsPrivateKeyEncrypted"`
	FolderKeyEncrypted      []byte    `json:"folderKeyEncrypted"`
	CreatedAt               time.Time `json:"createdAt"`
	ModifiedAt              time.Time `json:"modifiedAt"`
}

// NewFolderEntry mints a subfolder: fresh random IPNS keypair and folder
// key, both ECIES-wrapped for the owner.
func NewFolderEntry(name string, owner *btcec.PublicKey) (*FolderEntry, error) {
	pub, priv, err := crypto.NewSigningKey()
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(priv)

	folderKey, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(folderKey)

	seed := priv.Seed()
	defer crypto.Zero(seed)
	encIPNS, err := crypto.WrapKey(seed, owner)
	if err != nil {
		return nil, err
	}
	encFolder, err := crypto.WrapKey(folderKey, owner)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &FolderEntry{
		ID:                      uuid.NewString(),
		Name:                    name,
		IPNSName:                ipns.NameFromPublicKey(pub),
		IPNSPrivateKeyEncrypted: encIPNS,
		FolderKeyEncrypted:      encFolder,
		CreatedAt:               now,
		ModifiedAt:              now,
	}, nil
}

// Rename updates the display name and bumps the modification time. The
// entry's keys and IPNS name are untouched; only the parent metadata that
// embeds this entry gets re-encrypted and republished.
func (f *FolderEntry) Rename(name string) {
	f.Name = name
	f.ModifiedAt = time.Now().UTC()
}

// RewrapFor re-encrypts the entry's keys for a new recipient, used when
// sharing a folder or moving it into a parent owned by a different key.
// The returned entry keeps the same identity (ID, IPNS name); only the
// wrapping changes.
func (f *FolderEntry) RewrapFor(owner *btcec.PrivateKey, recipient *btcec.PublicKey) (*FolderEntry, error) {
	seed, err := crypto.UnwrapKey(f.IPNSPrivateKeyEncrypted, owner)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(seed)
	folderKey, err := crypto.UnwrapKey(f.FolderKeyEncrypted, owner)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(folderKey)

	encIPNS, err := crypto.WrapKey(seed, recipient)
	if err != nil {
		return nil, err
	}
	encFolder, err := crypto.WrapKey(folderKey, recipient)
	if err != nil {
		return nil, err
	}

	out := *f
	out.IPNSPrivateKeyEncrypted = encIPNS
	out.FolderKeyEncrypted = encFolder
	out.ModifiedAt = time.Now().UTC()
	return &out, nil
}

// FilePointer is the slim per-file reference kept in folder metadata. The
// heavy file metadata (CID, wrapped key, IV, version history) lives behind
// its own IPNS name so folder listings stay cheap.
type FilePointer struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	FileMetaIPNSName        string    `json:"fileMetaIpnsName"`
	IPNSPrivateKeyEncrypted []byte    `json:"ipnsPrivateKeyEncrypted"`
	CreatedAt               time.Time `json:"createdAt"`
	ModifiedAt              time.Time `json:"modifiedAt"`
}

// NewFilePointer mints a file reference with its own random metadata IPNS
// keypair, wrapped for the owner.
func NewFilePointer(name string, owner *btcec.PublicKey) (*FilePointer, error) {
	pub, priv, err := crypto.NewSigningKey()
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(priv)

	seed := priv.Seed()
	defer crypto.Zero(seed)
	encIPNS, err := crypto.WrapKey(seed, owner)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &FilePointer{
		ID:                      uuid.NewString(),
		Name:                    name,
		FileMetaIPNSName:        ipns.NameFromPublicKey(pub),
		IPNSPrivateKeyEncrypted: encIPNS,
		CreatedAt:               now,
		ModifiedAt:              now,
	}, nil
}
