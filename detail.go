package opvault

import "encoding/json"

// Detail is the decrypted payload of an item, dispatched on the item's
// category: LoginDetail for Login, PasswordDetail for Password, and
// GenericDetail for everything else.
type Detail interface {
	detail()
}

// LoginDetail is the payload of a Login item: the saved form fields plus
// optional metadata about the form they came from.
type LoginDetail struct {
	HTMLForm   *HTMLForm    `json:"htmlForm"`
	Fields     []LoginField `json:"fields"`
	NotesPlain string       `json:"notesPlain"`
}

func (*LoginDetail) detail() {}

// HTMLForm describes the web form a login was captured from.
type HTMLForm struct {
	HTMLID     string `json:"htmlID"`
	HTMLName   string `json:"htmlName"`
	HTMLMethod string `json:"htmlMethod"`
}

// LoginFieldKind is the single-letter type code of a captured form field.
type LoginFieldKind string

const (
	FieldText     LoginFieldKind = "T"
	FieldPassword LoginFieldKind = "P"
	FieldInput    LoginFieldKind = "I"
	FieldCheckbox LoginFieldKind = "C"
	FieldButton   LoginFieldKind = "B"
)

// LoginField is one captured form field. Designation marks the fields
// 1Password treats specially ("username", "password").
type LoginField struct {
	Kind        LoginFieldKind `json:"type"`
	Name        string         `json:"name"`
	Value       string         `json:"value"`
	Designation string         `json:"designation"`
}

// PasswordDetail is the payload of a standalone Password item.
type PasswordDetail struct {
	Password   string `json:"password"`
	NotesPlain string `json:"notesPlain"`
}

func (*PasswordDetail) detail() {}

// GenericDetail is the payload shape shared by the remaining categories:
// sections of typed fields plus free-form notes.
type GenericDetail struct {
	Sections   []Section `json:"sections"`
	NotesPlain string    `json:"notesPlain"`
}

func (*GenericDetail) detail() {}

// Section is one titled group of fields in a generic detail.
type Section struct {
	Name   string         `json:"name"`
	Title  string         `json:"title"`
	Fields []SectionField `json:"fields"`
}

// SectionField is one typed field. The value's JSON type depends on Kind
// (strings for most kinds, integers for date and monthYear, an object for
// address), so it is kept raw and decoded through the typed accessors.
type SectionField struct {
	Kind       string           `json:"k"`
	Name       string           `json:"n"`
	Title      string           `json:"t"`
	Value      json.RawMessage  `json:"v"`
	Attributes *FieldAttributes `json:"a"`
}

// StringValue decodes the field value as a string. It returns false when
// the value is absent or not a JSON string.
func (f *SectionField) StringValue() (string, bool) {
	var s string
	if len(f.Value) == 0 || json.Unmarshal(f.Value, &s) != nil {
		return "", false
	}
	return s, true
}

// IntValue decodes the field value as an integer, the encoding used by
// date and monthYear fields.
func (f *SectionField) IntValue() (int64, bool) {
	var n int64
	if len(f.Value) == 0 || json.Unmarshal(f.Value, &n) != nil {
		return 0, false
	}
	return n, true
}

// AddressValue decodes the field value as an address object.
func (f *SectionField) AddressValue() (*Address, bool) {
	if len(f.Value) == 0 {
		return nil, false
	}
	var a Address
	if json.Unmarshal(f.Value, &a) != nil {
		return nil, false
	}
	return &a, true
}

// Address is the structured value of an address field.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// FieldAttributes carries the per-field UI hints some writers attach.
type FieldAttributes struct {
	Guarded         string `json:"guarded"`
	ClipboardFilter string `json:"clipboardFilter"`
	Generate        string `json:"generate"`
}
