// Package attribute defines the catalog of logical file metadata attributes.
//
// A logical attribute is a stable, typed handle (e.g. FileSize) independent
// of the raw key strings the search backend understands. The catalog maps
// each logical attribute to one or more backend keys and back, and records
// the kind of value the attribute carries.
//
// Example usage:
//
//	desc, ok := attribute.Lookup(attribute.FileSize)
//	if ok {
//	    fmt.Println(desc.Keys)  // ["kMDItemFSSize"]
//	    fmt.Println(desc.Kind)  // Size
//	}
package attribute

// ID identifies a logical attribute.
type ID string

// Logical attribute identifiers.
//
// The set is a representative subset of the backend's key catalog, covering
// the common file-system, document, media and usage-date attributes.
const (
	// File system attributes.
	FileName         ID = "fileName"
	DisplayName      ID = "displayName"
	FilePath         ID = "filePath"
	FileExtension    ID = "fileExtension"
	FileSize         ID = "fileSize"
	FileIsInvisible  ID = "fileIsInvisible"
	FileType         ID = "fileType"
	ContentType      ID = "contentType"
	ContentTypeTree  ID = "contentTypeTree"
	CreationDate     ID = "creationDate"
	ModificationDate ID = "modificationDate"
	AttributeChange  ID = "attributeChangeDate"
	AddedDate        ID = "addedDate"
	LastUsedDate     ID = "lastUsedDate"
	UsedDates        ID = "usedDates"
	UseCount         ID = "useCount"

	// Document attributes.
	Title        ID = "title"
	Subject      ID = "subject"
	Comment      ID = "comment"
	Description  ID = "description"
	Keywords     ID = "keywords"
	Authors      ID = "authors"
	Creator      ID = "creator"
	Copyright    ID = "copyright"
	Languages    ID = "languages"
	Version      ID = "version"
	Identifier   ID = "identifier"
	PageCount    ID = "pageCount"
	PageWidth    ID = "pageWidth"
	PageHeight   ID = "pageHeight"
	TextContent  ID = "textContent"
	WhereFroms   ID = "whereFroms"
	DownloadDate ID = "downloadDate"

	// Media attributes.
	Duration       ID = "duration"
	PixelWidth     ID = "pixelWidth"
	PixelHeight    ID = "pixelHeight"
	Codecs         ID = "codecs"
	AudioBitRate   ID = "audioBitRate"
	VideoBitRate   ID = "videoBitRate"
	TotalBitRate   ID = "totalBitRate"
	AudioChannels  ID = "audioChannelCount"
	SampleRate     ID = "audioSampleRate"
	Album          ID = "album"
	MusicalGenre   ID = "musicalGenre"
	RecordingYear  ID = "recordingYear"
	IsStreamable   ID = "isStreamable"
	AperatureValue ID = "apertureValue"
	ISOSpeed       ID = "isoSpeed"
	Altitude       ID = "altitude"
	Latitude       ID = "latitude"
	Longitude      ID = "longitude"

	// Rating and finder attributes.
	StarRating   ID = "starRating"
	FinderTags   ID = "finderTags"
	FinderLabel  ID = "finderLabel"
	IsScreenshot ID = "isScreenshot"
)

// Kind describes the type of value an attribute carries.
type Kind int

// Value kinds.
const (
	KindString Kind = iota
	KindInt
	KindDouble
	KindBool
	KindDate
	KindSize     // Byte count, stored as int64.
	KindDuration // Seconds, stored as float64.
	KindStringList
	KindRawType // Opaque backend-defined value, equality only.
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindSize:
		return "size"
	case KindDuration:
		return "duration"
	case KindStringList:
		return "stringList"
	case KindRawType:
		return "rawType"
	default:
		return "unknown"
	}
}

// Ordered reports whether values of this kind support ordering comparisons
// (<, <=, >, >=). Equality is available for every kind.
func (k Kind) Ordered() bool {
	switch k {
	case KindInt, KindDouble, KindDate, KindSize, KindDuration:
		return true
	default:
		return false
	}
}

// Descriptor is a static catalog entry for one logical attribute.
//
// Invariants:
//   - Keys has at least one backend key
//   - the first key is the primary key used for sorting and fetching.
type Descriptor struct {
	// ID is the logical attribute identifier.
	ID ID

	// Keys are the backend key strings this attribute maps to.
	Keys []string

	// Kind is the value kind.
	Kind Kind
}

// Key returns the primary backend key.
func (d Descriptor) Key() string {
	return d.Keys[0]
}
