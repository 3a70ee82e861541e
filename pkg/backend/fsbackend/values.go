package fsbackend

import (
	"os"
	"path/filepath"
	"strings"
)

// extractValues builds the backend value map for one file.
//
// The local file system exposes only a subset of the full key catalog;
// content-derived keys (text content, media dimensions) are not populated.
// Creation-time keys fall back to the modification time because birth time
// is not portable.
func extractValues(path string, info os.FileInfo) map[string]any {
	name := filepath.Base(path)
	modTime := info.ModTime()

	values := map[string]any{
		"kMDItemFSName":                  name,
		"kMDItemDisplayName":             name,
		"kMDItemPath":                    path,
		"kMDItemFSSize":                  info.Size(),
		"kMDItemFSInvisible":             strings.HasPrefix(name, "."),
		"kMDItemFSContentChangeDate":     modTime,
		"kMDItemContentModificationDate": modTime,
		"kMDItemFSCreationDate":          modTime,
		"kMDItemContentCreationDate":     modTime,
		"kMDItemAttributeChangeDate":     modTime,
		"kMDItemDateAdded":               modTime,
	}

	contentType, tree := contentTypeFor(name, info.IsDir())
	values["kMDItemContentType"] = contentType
	values["kMDItemContentTypeTree"] = tree

	return values
}

// extMap maps file extensions to uniform content type identifiers.
var extMap = map[string]string{
	".txt":  "public.plain-text",
	".md":   "net.daringfireball.markdown",
	".html": "public.html",
	".xml":  "public.xml",
	".json": "public.json",
	".yaml": "public.yaml",
	".yml":  "public.yaml",
	".csv":  "public.comma-separated-values-text",
	".pdf":  "com.adobe.pdf",
	".rtf":  "public.rtf",
	".doc":  "com.microsoft.word.doc",
	".docx": "org.openxmlformats.wordprocessingml.document",
	".xls":  "com.microsoft.excel.xls",
	".xlsx": "org.openxmlformats.spreadsheetml.sheet",
	".png":  "public.png",
	".jpg":  "public.jpeg",
	".jpeg": "public.jpeg",
	".gif":  "com.compuserve.gif",
	".tiff": "public.tiff",
	".heic": "public.heic",
	".svg":  "public.svg-image",
	".mp3":  "public.mp3",
	".wav":  "com.microsoft.waveform-audio",
	".flac": "org.xiph.flac",
	".aac":  "public.aac-audio",
	".mp4":  "public.mpeg-4",
	".mov":  "com.apple.quicktime-movie",
	".mkv":  "org.matroska.mkv",
	".avi":  "public.avi",
	".zip":  "public.zip-archive",
	".gz":   "org.gnu.gnu-zip-archive",
	".tar":  "public.tar-archive",
	".go":   "public.go-source",
	".py":   "public.python-script",
	".js":   "com.netscape.javascript-source",
	".c":    "public.c-source",
	".h":    "public.c-header",
	".sh":   "public.shell-script",
	".app":  "com.apple.application-bundle",
}

// typeTrees maps a content type to its ancestry, most specific first.
var typeTrees = map[string][]string{
	"public.plain-text": {"public.plain-text", "public.text", "public.data", "public.content", "public.item"},
	"public.png":        {"public.png", "public.image", "public.data", "public.content", "public.item"},
	"public.jpeg":       {"public.jpeg", "public.image", "public.data", "public.content", "public.item"},
	"public.mp3":        {"public.mp3", "public.audio", "public.audiovisual-content", "public.data", "public.content", "public.item"},
	"public.mpeg-4":     {"public.mpeg-4", "public.movie", "public.audiovisual-content", "public.data", "public.content", "public.item"},
	"com.adobe.pdf":     {"com.adobe.pdf", "public.composite-content", "public.data", "public.content", "public.item"},
	"public.folder":     {"public.folder", "public.directory", "public.item"},
}

// contentTypeFor guesses a content type and its type tree from the name.
func contentTypeFor(name string, isDir bool) (string, []string) {
	if isDir {
		return "public.folder", append([]string{}, typeTrees["public.folder"]...)
	}

	ext := strings.ToLower(filepath.Ext(name))
	contentType, known := extMap[ext]
	if !known {
		contentType = "public.data"
	}

	if tree, ok := typeTrees[contentType]; ok {
		return contentType, append([]string{}, tree...)
	}
	return contentType, []string{contentType, "public.data", "public.item"}
}

// filterKeys trims a value map to the requested keys. An empty key list
// returns everything.
func filterKeys(values map[string]any, keys []string) map[string]any {
	if len(keys) == 0 {
		out := make(map[string]any, len(values))
		for k, v := range values {
			out[k] = v
		}
		return out
	}

	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if v, ok := values[key]; ok {
			out[key] = v
		}
	}
	return out
}
