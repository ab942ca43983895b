// Package hostsfile maintains loopback entries for managed domains inside a
// delimited block of the OS hosts file. Everything outside the two sentinel
// marker lines is preserved verbatim, so manually-added entries are never
// disturbed.
package hostsfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"phpvhost/internal/security"
)

const (
	// BeginMarker and EndMarker delimit the managed block. The block is
	// owned exclusively by this tool and may be rewritten wholesale.
	BeginMarker = "# BEGIN phpvhost managed block"
	EndMarker   = "# END phpvhost managed block"

	// LoopbackIP is the address every managed domain resolves to.
	LoopbackIP = "127.0.0.1"
)

// ErrUnwritable indicates the hosts file cannot be written, typically
// because the command was run without elevated privileges.
var ErrUnwritable = errors.New("hosts file is not writable")

// ErrNotFound indicates the domain has no entry in the managed block.
var ErrNotFound = errors.New("hosts entry not found")

// Entry is one line of the managed block.
type Entry struct {
	IP   string
	Host string
}

// Document is the structured form of a hosts file: the lines before the
// managed block, the managed entries, and the lines after the block. The
// surrounding lines round-trip byte for byte.
type Document struct {
	Before  []string
	Entries []Entry
	After   []string
}

// Parse builds a Document from hosts file content. A missing block yields
// no entries. A malformed block (begin marker without end marker) is
// recovered: parseable entry lines after the begin marker become managed
// entries and everything else is preserved outside the block.
func Parse(content string) *Document {
	doc := &Document{}

	lines := strings.Split(content, "\n")
	// Split leaves a trailing empty element when content ends with a
	// newline; drop it so Render can own the final newline.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	const (
		before = iota
		inside
		after
	)
	state := before

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch state {
		case before:
			if trimmed == BeginMarker {
				state = inside
				continue
			}
			doc.Before = append(doc.Before, line)
		case inside:
			if trimmed == EndMarker {
				state = after
				continue
			}
			if entry, ok := parseEntry(trimmed); ok {
				doc.Entries = append(doc.Entries, entry)
			} else if trimmed != "" {
				// Not ours and not a valid entry: the block is
				// malformed, keep the line outside it.
				doc.After = append(doc.After, line)
			}
		case after:
			doc.After = append(doc.After, line)
		}
	}

	return doc
}

// parseEntry parses an "<ip> <hostname>" line.
func parseEntry(line string) (Entry, bool) {
	if line == "" || strings.HasPrefix(line, "#") {
		return Entry{}, false
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Entry{}, false
	}
	return Entry{IP: fields[0], Host: fields[1]}, true
}

// Render serializes the document back to hosts file content. The managed
// block is omitted entirely when there are no entries.
func (d *Document) Render() string {
	var b strings.Builder

	for _, line := range d.Before {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(d.Entries) > 0 {
		b.WriteString(BeginMarker)
		b.WriteString("\n")
		for _, e := range d.Entries {
			b.WriteString(e.IP)
			b.WriteString("\t")
			b.WriteString(e.Host)
			b.WriteString("\n")
		}
		b.WriteString(EndMarker)
		b.WriteString("\n")
	}

	for _, line := range d.After {
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

// Has reports whether a host is present in the managed block.
func (d *Document) Has(host string) bool {
	for _, e := range d.Entries {
		if e.Host == host {
			return true
		}
	}
	return false
}

// Add appends a loopback entry for a host if absent.
// Reports whether the document changed.
func (d *Document) Add(host string) bool {
	if d.Has(host) {
		return false
	}
	d.Entries = append(d.Entries, Entry{IP: LoopbackIP, Host: host})
	return true
}

// Remove deletes the entry for a host.
// Reports whether the document changed.
func (d *Document) Remove(host string) bool {
	for i, e := range d.Entries {
		if e.Host == host {
			d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Reconciler applies managed-block edits to the hosts file on disk.
type Reconciler struct {
	Path string
}

// load reads and parses the hosts file. A missing file yields an empty
// document.
func (r *Reconciler) load() (*Document, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to read hosts file %s: %w", r.Path, err)
	}
	return Parse(string(data)), nil
}

// write serializes the document over the hosts file.
func (r *Reconciler) write(doc *Document) error {
	if err := os.WriteFile(r.Path, []byte(doc.Render()), 0644); err != nil {
		return fmt.Errorf("%w: %s: %v (try re-running with sudo)", ErrUnwritable, r.Path, err)
	}
	return nil
}

// Add ensures a loopback entry exists for the domain. No-op when the entry
// is already present: the file is not rewritten.
func (r *Reconciler) Add(domain string) error {
	// The domain becomes a hosts file line; never write a malformed one.
	if err := security.ValidateDomain(domain); err != nil {
		return err
	}
	doc, err := r.load()
	if err != nil {
		return err
	}
	if !doc.Add(domain) {
		return nil
	}
	return r.write(doc)
}

// Remove deletes the domain's entry from the managed block.
func (r *Reconciler) Remove(domain string) error {
	doc, err := r.load()
	if err != nil {
		return err
	}
	if !doc.Remove(domain) {
		return fmt.Errorf("%w: %s", ErrNotFound, domain)
	}
	return r.write(doc)
}

// Has reports whether the domain currently resolves through the managed
// block. Used for drift detection.
func (r *Reconciler) Has(domain string) (bool, error) {
	doc, err := r.load()
	if err != nil {
		return false, err
	}
	return doc.Has(domain), nil
}
