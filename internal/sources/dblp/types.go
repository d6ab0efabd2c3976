package dblp

import (
	"encoding/json"
	"encoding/xml"
)

// personRecord is the root element of a DBLP person export
// (https://dblp.org/pid/{pid}.xml).
type personRecord struct {
	XMLName xml.Name    `xml:"dblpperson"`
	Name    string      `xml:"name,attr"`
	PID     string      `xml:"pid,attr"`
	Person  personBlock `xml:"person"`
	Records []rawRecord `xml:"r"`
}

type personBlock struct {
	Notes []noteElem `xml:"note"`
}

type noteElem struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// rawRecord holds one <r> element. Exactly one of the publication pointers is
// set depending on the record tag; all nil means an unrecognized record type.
type rawRecord struct {
	Inproceedings *publElem `xml:"inproceedings"`
	Article       *publElem `xml:"article"`
	Book          *publElem `xml:"book"`
	Incollection  *publElem `xml:"incollection"`
	PhDThesis     *publElem `xml:"phdthesis"`
	MastersThesis *publElem `xml:"mastersthesis"`
	Data          *publElem `xml:"data"`
	Proceedings   *publElem `xml:"proceedings"`
	WWW           *publElem `xml:"www"`
}

// tagged returns the publication element and its tag name, or ("", nil) for
// record types this client does not recognize.
func (r *rawRecord) tagged() (string, *publElem) {
	switch {
	case r.Inproceedings != nil:
		return "inproceedings", r.Inproceedings
	case r.Article != nil:
		return "article", r.Article
	case r.Book != nil:
		return "book", r.Book
	case r.Incollection != nil:
		return "incollection", r.Incollection
	case r.PhDThesis != nil:
		return "phdthesis", r.PhDThesis
	case r.MastersThesis != nil:
		return "mastersthesis", r.MastersThesis
	case r.Data != nil:
		return "data", r.Data
	case r.Proceedings != nil:
		return "proceedings", r.Proceedings
	case r.WWW != nil:
		return "www", r.WWW
	}
	return "", nil
}

type publElem struct {
	Key       string       `xml:"key,attr"`
	PublType  string       `xml:"publtype,attr"`
	Title     string       `xml:"title"`
	Year      string       `xml:"year"`
	BookTitle string       `xml:"booktitle"`
	Journal   string       `xml:"journal"`
	Publisher string       `xml:"publisher"`
	Authors   []authorElem `xml:"author"`
	Links     []string     `xml:"ee"`
	Notes     []noteElem   `xml:"note"`
}

type authorElem struct {
	PID  string `xml:"pid,attr"`
	Name string `xml:",chardata"`
}

// searchResponse mirrors the DBLP author search JSON API
// (https://dblp.org/search/author/api?format=json).
type searchResponse struct {
	Result struct {
		Hits struct {
			Hit []searchHit `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

type searchHit struct {
	Info struct {
		Author string `json:"author"`
		URL    string `json:"url"`
		Notes  *struct {
			Note noteList `json:"note"`
		} `json:"notes"`
	} `json:"info"`
}

// noteList absorbs DBLP's habit of emitting a single note as an object and
// multiple notes as an array.
type noteList []searchNote

type searchNote struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

func (n *noteList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var notes []searchNote
		if err := json.Unmarshal(data, &notes); err != nil {
			return err
		}
		*n = notes
		return nil
	}
	var note searchNote
	if err := json.Unmarshal(data, &note); err != nil {
		return err
	}
	*n = noteList{note}
	return nil
}
