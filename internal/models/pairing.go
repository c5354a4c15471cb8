package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"gorm.io/datatypes"
)

// PairRef identifies an answer key pair. Clients send it either as a JSON
// number or as a string; it is always written back as a string.
type PairRef string

func (r *PairRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = PairRef(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*r = PairRef(n.String())
		return nil
	}
}

// ID returns the numeric pair id, or false when the reference does not name a
// stored pair (legacy client ids such as "pair1_12" included).
func (r PairRef) ID() (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(string(r)), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Pairing is one left/right join drawn by the respondent.
type Pairing struct {
	PairID      PairRef  `json:"pair_id"`
	Matched     *bool    `json:"matched,omitempty"`
	RightPairID *PairRef `json:"right_pair_id,omitempty"`
}

// Joined reports whether the respondent connected the left item of PairID to
// its own right item.
func (p Pairing) Joined() bool {
	if p.Matched != nil && !*p.Matched {
		return false
	}
	if p.RightPairID != nil && *p.RightPairID != p.PairID {
		return false
	}
	return true
}

type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadRaw
	PayloadParsed
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadRaw:
		return "raw"
	case PayloadParsed:
		return "parsed"
	default:
		return "empty"
	}
}

// Payload is the submitted pairing list as it arrived: nothing, a JSON-encoded
// string, or an already structured list.
type Payload struct {
	kind   PayloadKind
	raw    string
	parsed []Pairing
}

func EmptyPayload() Payload {
	return Payload{kind: PayloadEmpty}
}

func RawPayload(raw string) Payload {
	return Payload{kind: PayloadRaw, raw: raw}
}

func ParsedPayload(pairings []Pairing) Payload {
	return Payload{kind: PayloadParsed, parsed: pairings}
}

// PayloadFromJSON classifies a JSON value taken from a request body. A JSON
// string becomes Raw, a list becomes Parsed, anything else (including a list
// that does not decode) is Empty.
func PayloadFromJSON(data json.RawMessage) Payload {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return EmptyPayload()
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return EmptyPayload()
		}
		return RawPayload(s)
	case '[':
		var pairings []Pairing
		if err := json.Unmarshal(data, &pairings); err != nil {
			return EmptyPayload()
		}
		return ParsedPayload(pairings)
	default:
		return EmptyPayload()
	}
}

func (p Payload) Kind() PayloadKind {
	return p.kind
}

// Pairings normalizes the payload to a list. It never fails: absent or
// malformed input yields an empty, non-nil list.
func (p Payload) Pairings() []Pairing {
	switch p.kind {
	case PayloadParsed:
		if p.parsed == nil {
			return []Pairing{}
		}
		return p.parsed
	case PayloadRaw:
		return ParsePairings([]byte(p.raw))
	default:
		return []Pairing{}
	}
}

// ParsePairings decodes a serialized pairing list. A list encoded twice (a JSON
// string holding the list) is unwrapped once.
func ParsePairings(data []byte) []Pairing {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Pairing{}
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return []Pairing{}
		}
		data = bytes.TrimSpace([]byte(inner))
		if len(data) == 0 || data[0] != '[' {
			return []Pairing{}
		}
	}

	var pairings []Pairing
	if err := json.Unmarshal(data, &pairings); err != nil || pairings == nil {
		return []Pairing{}
	}
	return pairings
}

// SerializePairings is the single stored representation of a pairing list.
func SerializePairings(pairings []Pairing) datatypes.JSON {
	if pairings == nil {
		pairings = []Pairing{}
	}
	data, err := json.Marshal(pairings)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}
