package textutil

import "strings"

// unsafeRemover drops characters that are illegal in file names on at least
// one supported filesystem.
var unsafeRemover = strings.NewReplacer(
	"\\", "",
	"/", "",
	"*", "",
	"?", "",
	":", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName removes `\ / * ? : " < > |` from name and replaces every
// space with an underscore. Other characters, including non-ASCII text, pass
// through unchanged, so distinct names stay distinct unless they differ only
// in removed characters.
func SanitizeFileName(name string) string {
	return strings.ReplaceAll(unsafeRemover.Replace(name), " ", "_")
}

// StripUnsafe removes the characters SanitizeFileName drops but keeps spaces.
func StripUnsafe(name string) string {
	return unsafeRemover.Replace(name)
}
