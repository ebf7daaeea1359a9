package v1

// PackManifest describes an archive to build from files, directories and
// inline content.
type PackManifest struct {
	Kind     string   `yaml:"kind" json:"kind" validate:"required,eq=Pack"`
	Metadata Metadata `yaml:"metadata" json:"metadata"`
	Spec     PackSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type PackSpec struct {
	// Archive is the path of the ZIP file to create.
	Archive string `yaml:"archive" json:"archive" validate:"required" template:""`

	// Compression is the method for file entries: deflate (default), store or zstd.
	Compression string `yaml:"compression,omitempty" json:"compression,omitempty" validate:"omitempty,oneof=deflate store zstd"`

	// Entries are added in order.
	Entries []EntrySpec `yaml:"entries" json:"entries" validate:"required,min=1,dive"`

	// Publish optionally copies the finished archive to a destination.
	Publish *PublishSpec `yaml:"publish,omitempty" json:"publish,omitempty"`
}

// EntrySpec is one item to add. Exactly one of File, Dir or Content is set.
type EntrySpec struct {
	// Name is the local name inside the archive. For directories it is the
	// prefix the tree is stored under.
	Name string `yaml:"name,omitempty" json:"name,omitempty" template:""`

	File    *string `yaml:"file,omitempty" json:"file,omitempty" validate:"required_without_all=Dir Content,excluded_with=Dir Content" template:""`
	Dir     *string `yaml:"dir,omitempty" json:"dir,omitempty" validate:"required_without_all=File Content,excluded_with=File Content" template:""`
	Content *string `yaml:"content,omitempty" json:"content,omitempty" validate:"required_without_all=File Dir,excluded_with=File Dir"`
}

// PublishSpec configures where the finished archive is copied (one of the fields should be set).
type PublishSpec struct {
	// Name overrides the published object name (default: archive base name).
	Name   string             `yaml:"name,omitempty" json:"name,omitempty" template:""`
	Folder *FolderPublishSpec `yaml:"folder,omitempty" json:"folder,omitempty"`
	S3     *S3PublishSpec     `yaml:"s3,omitempty" json:"s3,omitempty"`
}

type FolderPublishSpec struct {
	Path string `yaml:"path" json:"path" validate:"required" template:""`
}

type S3PublishSpec struct {
	Bucket         string            `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Region         string            `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       string            `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	Prefix         string            `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	ForcePathStyle bool              `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
	Credentials    *S3Credentials    `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	Metadata       map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

type S3Credentials struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" validate:"required" template:""`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" validate:"required" template:""`
}
