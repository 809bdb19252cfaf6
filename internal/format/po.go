package format

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/chai2010/gettext-go/po"
)

// POLoader reads gettext catalogues. The header entry (empty msgid) is
// skipped; fuzzy entries and entries with an empty msgstr are not
// translated. Obsolete (#~) entries are dropped. For plural entries the
// singular msgid and the first msgstr form are used.
type POLoader struct{}

func NewPOLoader() *POLoader { return &POLoader{} }

func (l *POLoader) Format() string { return PO }

func (l *POLoader) Extensions() []string { return []string{".po", ".pot"} }

// poUnit adapts a parsed po.Message to Unit.
type poUnit struct {
	msgid  string
	msgstr string
	fuzzy  bool
}

func (u *poUnit) Source() string       { return u.msgid }
func (u *poUnit) Target() string       { return u.msgstr }
func (u *poUnit) IsTranslatable() bool { return u.msgid != "" }
func (u *poUnit) IsTranslated() bool   { return u.msgstr != "" && !u.fuzzy }

func (l *POLoader) Load(data []byte) (*Store, error) {
	file, err := po.Load(dropObsolete(clean(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid po: %w", err)
	}

	store := &Store{Format: PO}
	for _, msg := range file.Messages {
		if msg.MsgId == "" {
			continue
		}
		store.Units = append(store.Units, newPOUnit(msg))
	}
	return store, nil
}

func newPOUnit(msg po.Message) *poUnit {
	u := &poUnit{msgid: msg.MsgId, msgstr: msg.MsgStr}
	if msg.MsgIdPlural != "" && len(msg.MsgStrPlural) > 0 {
		u.msgstr = msg.MsgStrPlural[0]
	}
	for _, flag := range msg.Flags {
		for _, f := range strings.Split(flag, ",") {
			if strings.TrimSpace(f) == "fuzzy" {
				u.fuzzy = true
			}
		}
	}
	return u
}

// dropObsolete removes #~ lines so retired entries never reach the parser.
func dropObsolete(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data))
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("#~")) {
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
