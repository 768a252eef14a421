package dm

import "time"

// Hub is an account container holding projects.
type Hub struct {
	ID            string
	Name          string
	Region        string
	ExtensionType string
}

// Project is a project inside a hub.
type Project struct {
	ID            string
	Name          string
	HubID         string
	RootFolderID  string
	ExtensionType string
}

// Folder is a node of a project's folder tree.
type Folder struct {
	ID            string
	Name          string
	DisplayName   string
	ParentID      string
	ExtensionType string
	ObjectCount   int
	Hidden        bool
	CreatedAt     time.Time
	ModifiedAt    time.Time
}

// Kind returns the folder's extension kind.
func (f *Folder) Kind() Kind {
	return ParseKind(f.ExtensionType)
}

// Item is a document inside a folder.
type Item struct {
	ID            string
	DisplayName   string
	ParentID      string
	TipVersionID  string
	ExtensionType string
	CreatedAt     time.Time
	ModifiedAt    time.Time

	// Versions holds versions included in the response that produced the
	// item, such as the first version on creation. Not a full history.
	Versions []Version
}

// Version is one revision of an item.
type Version struct {
	ID            string
	Name          string
	DisplayName   string
	ItemID        string
	StorageID     string // storage object URN the version's bytes live in
	ExtensionType string
	VersionNumber int
	StorageSize   int64
	FileType      string
	CreatedAt     time.Time
}

// StorageObject is a reserved or uploaded OSS object.
type StorageObject struct {
	ID        string // urn:adsk.objects:os.object:<bucket>/<object>
	BucketKey string
	ObjectKey string
	Size      int64  // known after finalization
	Location  string // OSS URL of the object, known after finalization
}

// SignedUpload is a time-limited grant to PUT bytes to object storage
// without a bearer token. It is single use.
type SignedUpload struct {
	URL              string
	UploadKey        string
	ExpiresInMinutes int
	ExpiresAt        time.Time
}

// Contents is the listing of a folder.
type Contents struct {
	Folders []Folder
	Items   []Item
}
