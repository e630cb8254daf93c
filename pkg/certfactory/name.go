// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptchain.
//
// go-cryptchain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package certfactory

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

var attributeOIDs = map[string]asn1.ObjectIdentifier{
	"CN":           {2, 5, 4, 3},
	"SN":           {2, 5, 4, 4},
	"SURNAME":      {2, 5, 4, 4},
	"SERIALNUMBER": {2, 5, 4, 5},
	"C":            {2, 5, 4, 6},
	"L":            {2, 5, 4, 7},
	"ST":           {2, 5, 4, 8},
	"S":            {2, 5, 4, 8},
	"STREET":       {2, 5, 4, 9},
	"O":            {2, 5, 4, 10},
	"OU":           {2, 5, 4, 11},
	"T":            {2, 5, 4, 12},
	"TITLE":        {2, 5, 4, 12},
	"POSTALCODE":   {2, 5, 4, 17},
	"GIVENNAME":    {2, 5, 4, 42},
	"DC":           {0, 9, 2342, 19200300, 100, 1, 25},
	"UID":          {0, 9, 2342, 19200300, 100, 1, 1},
	"E":            {1, 2, 840, 113549, 1, 9, 1},
	"EMAILADDRESS": {1, 2, 840, 113549, 1, 9, 1},
}

// ParseName parses an RFC 4514 distinguished name such as
// "CN=Example,O=Example Corp,C=US" into an RDN sequence.
//
// The string form lists the most specific RDN first while the encoded form
// lists it last, so the returned sequence is reversed relative to the input
// and pkix.Name.String on the result yields the input order again.
//
// Separators are ',' and ';'; '+' joins the attributes of a multi-valued RDN.
// Values may be quoted, may use backslash escapes (\, or \2C) and may be
// given as '#' followed by the hex encoding of a BER value. Attribute types
// are the usual keywords or dotted OIDs, optionally prefixed with "OID.".
func ParseName(dn string) (pkix.RDNSequence, error) {
	p := &nameParser{in: dn}
	var rdns pkix.RDNSequence

	p.skipSpaces()
	if p.done() {
		return pkix.RDNSequence{}, nil
	}

	for {
		var rdn pkix.RelativeDistinguishedNameSET
		for {
			atv, err := p.attribute()
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidName, dn, err)
			}
			rdn = append(rdn, atv)
			if p.done() || p.peek() != '+' {
				break
			}
			p.pos++
		}
		rdns = append(rdns, rdn)

		if p.done() {
			break
		}
		switch p.peek() {
		case ',', ';':
			p.pos++
		default:
			return nil, fmt.Errorf("%w: %q: unexpected %q at offset %d", ErrInvalidName, dn, p.peek(), p.pos)
		}
	}

	for i, j := 0, len(rdns)-1; i < j; i, j = i+1, j-1 {
		rdns[i], rdns[j] = rdns[j], rdns[i]
	}
	return rdns, nil
}

// MarshalName parses dn and returns its DER encoding.
func MarshalName(dn string) ([]byte, error) {
	rdns, err := ParseName(dn)
	if err != nil {
		return nil, err
	}
	der, err := asn1.Marshal(rdns)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidName, dn, err)
	}
	return der, nil
}

type nameParser struct {
	in  string
	pos int
}

func (p *nameParser) done() bool { return p.pos >= len(p.in) }
func (p *nameParser) peek() byte { return p.in[p.pos] }

func (p *nameParser) skipSpaces() {
	for !p.done() && p.peek() == ' ' {
		p.pos++
	}
}

func (p *nameParser) attribute() (pkix.AttributeTypeAndValue, error) {
	var atv pkix.AttributeTypeAndValue

	p.skipSpaces()
	start := p.pos
	for !p.done() && p.peek() != '=' {
		switch p.peek() {
		case ',', ';', '+':
			return atv, fmt.Errorf("missing '=' after %q", strings.TrimSpace(p.in[start:p.pos]))
		}
		p.pos++
	}
	if p.done() {
		return atv, fmt.Errorf("missing '=' after %q", strings.TrimSpace(p.in[start:]))
	}
	oid, err := attributeType(strings.TrimSpace(p.in[start:p.pos]))
	if err != nil {
		return atv, err
	}
	p.pos++ // '='
	atv.Type = oid

	p.skipSpaces()
	if !p.done() && p.peek() == '#' {
		atv.Value, err = p.berValue()
	} else if !p.done() && p.peek() == '"' {
		atv.Value, err = p.quotedValue()
	} else {
		atv.Value, err = p.stringValue()
	}
	return atv, err
}

func attributeType(name string) (asn1.ObjectIdentifier, error) {
	if name == "" {
		return nil, fmt.Errorf("empty attribute type")
	}
	if oid, ok := attributeOIDs[strings.ToUpper(name)]; ok {
		return oid, nil
	}

	dotted := name
	if len(dotted) > 4 && strings.EqualFold(dotted[:4], "OID.") {
		dotted = dotted[4:]
	}
	parts := strings.Split(dotted, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("unknown attribute type %q", name)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("unknown attribute type %q", name)
		}
		oid[i] = n
	}
	return oid, nil
}

// stringValue reads an unquoted value up to the next unescaped separator.
// Unescaped trailing spaces are dropped; escaped ones are kept.
func (p *nameParser) stringValue() (string, error) {
	var (
		buf  []byte
		keep int
	)
	for !p.done() {
		c := p.peek()
		switch c {
		case ',', ';', '+':
			return string(buf[:keep]), nil
		case '\\':
			b, err := p.escape()
			if err != nil {
				return "", err
			}
			buf = append(buf, b)
			keep = len(buf)
			continue
		case '"':
			return "", fmt.Errorf("unescaped '\"' at offset %d", p.pos)
		}
		buf = append(buf, c)
		if c != ' ' {
			keep = len(buf)
		}
		p.pos++
	}
	return string(buf[:keep]), nil
}

func (p *nameParser) quotedValue() (string, error) {
	p.pos++ // opening quote
	var buf []byte
	for !p.done() {
		c := p.peek()
		switch c {
		case '"':
			p.pos++
			p.skipSpaces()
			return string(buf), nil
		case '\\':
			b, err := p.escape()
			if err != nil {
				return "", err
			}
			buf = append(buf, b)
			continue
		}
		buf = append(buf, c)
		p.pos++
	}
	return "", fmt.Errorf("unterminated quoted value")
}

// escape consumes a backslash sequence and returns the byte it stands for.
func (p *nameParser) escape() (byte, error) {
	p.pos++ // backslash
	if p.done() {
		return 0, fmt.Errorf("dangling escape at end of input")
	}
	c := p.peek()
	if isHex(c) && p.pos+1 < len(p.in) && isHex(p.in[p.pos+1]) {
		b, _ := hex.DecodeString(p.in[p.pos : p.pos+2])
		p.pos += 2
		return b[0], nil
	}
	switch c {
	case ',', '+', '"', '\\', '<', '>', ';', '=', ' ', '#':
		p.pos++
		return c, nil
	}
	return 0, fmt.Errorf("invalid escape '\\%c' at offset %d", c, p.pos)
}

func (p *nameParser) berValue() (asn1.RawValue, error) {
	p.pos++ // '#'
	start := p.pos
	for !p.done() && isHex(p.peek()) {
		p.pos++
	}
	der, err := hex.DecodeString(p.in[start:p.pos])
	if err != nil {
		return asn1.RawValue{}, fmt.Errorf("invalid hex value: %w", err)
	}
	p.skipSpaces()

	var raw asn1.RawValue
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return asn1.RawValue{}, fmt.Errorf("invalid BER value: %w", err)
	}
	if len(rest) > 0 {
		return asn1.RawValue{}, fmt.Errorf("trailing data after BER value")
	}
	return raw, nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
