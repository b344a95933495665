package vector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// cpgAliases maps code page spellings found in .cpg files and DBF language
// drivers onto WHATWG encoding labels.
var cpgAliases = map[string]string{
	"88591":  "iso-8859-1",
	"8859_1": "iso-8859-1",
	"88592":  "iso-8859-2",
	"8859_2": "iso-8859-2",
	"88595":  "iso-8859-5",
	"8859_5": "iso-8859-5",
	"88597":  "iso-8859-7",
	"8859_7": "iso-8859-7",
	"866":    "ibm866",
	"874":    "windows-874",
	"932":    "shift_jis",
	"936":    "gbk",
	"949":    "euc-kr",
	"950":    "big5",
	"1250":   "windows-1250",
	"1251":   "windows-1251",
	"1252":   "windows-1252",
	"1253":   "windows-1253",
	"1254":   "windows-1254",
	"1255":   "windows-1255",
	"1256":   "windows-1256",
	"1257":   "windows-1257",
	"1258":   "windows-1258",
	"ansi":   "windows-1252",
}

// attributeDecoder returns a decoder for the code page named in the .cpg
// sidecar of a shapefile. A nil decoder means attributes are UTF-8 (or no
// code page was declared).
func attributeDecoder(shpPath string) (*encoding.Decoder, error) {
	data, err := readSidecar(shpPath, ".cpg")
	if err != nil || data == "" {
		return nil, err
	}
	return decoderFor(data)
}

func decoderFor(codePage string) (*encoding.Decoder, error) {
	name := strings.ToLower(strings.TrimSpace(codePage))
	name = strings.TrimPrefix(name, "cp")
	if name == "" || name == "utf-8" || name == "utf8" || name == "65001" {
		return nil, nil
	}
	if alias, ok := cpgAliases[name]; ok {
		name = alias
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: unsupported code page %q", codePage)
	}
	return enc.NewDecoder(), nil
}

// readSidecar reads the file next to shpPath with the given extension,
// trying lower then upper case. A missing sidecar returns "", nil.
func readSidecar(shpPath, ext string) (string, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return strings.TrimSpace(string(data)), nil
		}
		if !os.IsNotExist(err) {
			return "", eris.Wrapf(err, "vector: read %s", candidate)
		}
	}
	return "", nil
}
