package attribute

// catalog is the static attribute table. Built once at init, never mutated.
var catalog = []Descriptor{
	// File system.
	{FileName, []string{"kMDItemFSName"}, KindString},
	{DisplayName, []string{"kMDItemDisplayName"}, KindString},
	{FilePath, []string{"kMDItemPath"}, KindString},
	{FileExtension, []string{"kMDItemFSName"}, KindString},
	{FileSize, []string{"kMDItemFSSize"}, KindSize},
	{FileIsInvisible, []string{"kMDItemFSInvisible"}, KindBool},
	{FileType, []string{"kMDItemContentTypeTree"}, KindRawType},
	{ContentType, []string{"kMDItemContentType"}, KindString},
	{ContentTypeTree, []string{"kMDItemContentTypeTree"}, KindStringList},
	{CreationDate, []string{"kMDItemFSCreationDate", "kMDItemContentCreationDate"}, KindDate},
	{ModificationDate, []string{"kMDItemFSContentChangeDate", "kMDItemContentModificationDate"}, KindDate},
	{AttributeChange, []string{"kMDItemAttributeChangeDate"}, KindDate},
	{AddedDate, []string{"kMDItemDateAdded"}, KindDate},
	{LastUsedDate, []string{"kMDItemLastUsedDate"}, KindDate},
	{UsedDates, []string{"kMDItemUsedDates"}, KindStringList},
	{UseCount, []string{"kMDItemUseCount"}, KindInt},

	// Documents.
	{Title, []string{"kMDItemTitle"}, KindString},
	{Subject, []string{"kMDItemSubject"}, KindString},
	{Comment, []string{"kMDItemComment"}, KindString},
	{Description, []string{"kMDItemDescription"}, KindString},
	{Keywords, []string{"kMDItemKeywords"}, KindStringList},
	{Authors, []string{"kMDItemAuthors"}, KindStringList},
	{Creator, []string{"kMDItemCreator"}, KindString},
	{Copyright, []string{"kMDItemCopyright"}, KindString},
	{Languages, []string{"kMDItemLanguages"}, KindStringList},
	{Version, []string{"kMDItemVersion"}, KindString},
	{Identifier, []string{"kMDItemIdentifier"}, KindString},
	{PageCount, []string{"kMDItemNumberOfPages"}, KindInt},
	{PageWidth, []string{"kMDItemPageWidth"}, KindDouble},
	{PageHeight, []string{"kMDItemPageHeight"}, KindDouble},
	{TextContent, []string{"kMDItemTextContent"}, KindString},
	{WhereFroms, []string{"kMDItemWhereFroms"}, KindStringList},
	{DownloadDate, []string{"kMDItemDownloadedDate"}, KindDate},

	// Media.
	{Duration, []string{"kMDItemDurationSeconds"}, KindDuration},
	{PixelWidth, []string{"kMDItemPixelWidth"}, KindInt},
	{PixelHeight, []string{"kMDItemPixelHeight"}, KindInt},
	{Codecs, []string{"kMDItemCodecs"}, KindStringList},
	{AudioBitRate, []string{"kMDItemAudioBitRate"}, KindInt},
	{VideoBitRate, []string{"kMDItemVideoBitRate"}, KindInt},
	{TotalBitRate, []string{"kMDItemTotalBitRate"}, KindInt},
	{AudioChannels, []string{"kMDItemAudioChannelCount"}, KindInt},
	{SampleRate, []string{"kMDItemAudioSampleRate"}, KindDouble},
	{Album, []string{"kMDItemAlbum"}, KindString},
	{MusicalGenre, []string{"kMDItemMusicalGenre"}, KindString},
	{RecordingYear, []string{"kMDItemRecordingYear"}, KindInt},
	{IsStreamable, []string{"kMDItemStreamable"}, KindBool},
	{AperatureValue, []string{"kMDItemAperture"}, KindDouble},
	{ISOSpeed, []string{"kMDItemISOSpeed"}, KindDouble},
	{Altitude, []string{"kMDItemAltitude"}, KindDouble},
	{Latitude, []string{"kMDItemLatitude"}, KindDouble},
	{Longitude, []string{"kMDItemLongitude"}, KindDouble},

	// Rating and finder.
	{StarRating, []string{"kMDItemStarRating"}, KindDouble},
	{FinderTags, []string{"kMDItemUserTags"}, KindStringList},
	{FinderLabel, []string{"kMDItemFSLabel"}, KindInt},
	{IsScreenshot, []string{"kMDItemIsScreenCapture"}, KindBool},
}

var (
	byID  map[ID]Descriptor
	byKey map[string]ID
)

func init() {
	byID = make(map[ID]Descriptor, len(catalog))
	byKey = make(map[string]ID, len(catalog))

	for _, d := range catalog {
		byID[d.ID] = d
		for _, key := range d.Keys {
			// Several logical attributes may share a backend key
			// (e.g. fileExtension reuses the file name key). The
			// first registration wins so reverse lookup stays stable.
			if _, exists := byKey[key]; !exists {
				byKey[key] = d.ID
			}
		}
	}
}

// Lookup returns the descriptor for a logical attribute.
//
// Returns false if the attribute is not in the catalog.
func Lookup(id ID) (Descriptor, bool) {
	d, ok := byID[id]
	return d, ok
}

// Keys returns the backend keys for a logical attribute.
//
// Returns nil for unknown attributes.
func Keys(id ID) []string {
	d, ok := byID[id]
	if !ok {
		return nil
	}

	keys := make([]string, len(d.Keys))
	copy(keys, d.Keys)
	return keys
}

// FromKey resolves a backend key string to its logical attribute.
//
// Returns false for keys not modeled in the catalog. Unknown keys are
// expected: the backend's key set is larger than the catalog.
func FromKey(key string) (ID, bool) {
	id, ok := byKey[key]
	return id, ok
}

// KindOf returns the value kind of a logical attribute.
//
// Returns false if the attribute is not in the catalog.
func KindOf(id ID) (Kind, bool) {
	d, ok := byID[id]
	if !ok {
		return 0, false
	}
	return d.Kind, true
}

// All returns every descriptor in the catalog.
//
// The returned slice is a copy and safe to modify.
func All() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}
