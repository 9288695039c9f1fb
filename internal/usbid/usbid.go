package usbid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations of the database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Database holds vendor and product names.
type Database struct {
	mu       sync.RWMutex
	paths    []string
	vendors  map[uint16]string
	products map[uint32]string // VID<<16 | PID
	source   string
}

// New returns an empty database that loads from paths, or from DefaultPaths
// when none are given.
func New(paths ...string) *Database {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	return &Database{
		paths:    paths,
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
	}
}

// Load reads the first database file found. Loading again after a success
// does nothing. A missing database is fs.ErrNotExist.
func (db *Database) Load() error {
	db.mu.RLock()
	loaded := db.source != ""
	db.mu.RUnlock()
	if loaded {
		return nil
	}

	for _, path := range db.paths {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		err = db.Read(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		db.mu.Lock()
		db.source = path
		db.mu.Unlock()
		return nil
	}
	return fmt.Errorf("usb.ids: %w", fs.ErrNotExist)
}

// Read merges the vendor and product entries of a database in usb.ids format.
// Device class, language and other sections are skipped.
func (db *Database) Read(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	sc := bufio.NewScanner(r)
	var vid uint16
	inVendor := false
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		if line[0] != '\t' {
			// "vvvv  Vendor name"; other sections start with a keyword
			// ("C 03  Human Interface Device") and end the vendor list.
			id, name, ok := entry(line)
			inVendor = ok
			if !ok {
				continue
			}
			vid = uint16(id)
			db.vendors[vid] = name
			continue
		}

		// "\tpppp  Product name"; deeper levels are interfaces.
		if !inVendor || strings.HasPrefix(line, "\t\t") {
			continue
		}
		if pid, name, ok := entry(line[1:]); ok {
			db.products[uint32(vid)<<16|uint32(pid)] = name
		}
	}
	return sc.Err()
}

// entry splits "xxxx  name".
func entry(line string) (uint64, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(line[5:])
	return id, name, name != ""
}

// Vendor returns the vendor name, or "" if unknown.
func (db *Database) Vendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// Product returns the product name, or "" if unknown.
func (db *Database) Product(vid, pid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.products[uint32(vid)<<16|uint32(pid)]
}

// Name describes a device as "Vendor Product", substituting the hexadecimal
// ID for whichever part is unknown.
func (db *Database) Name(vid, pid uint16) string {
	vendor, product := db.Vendor(vid), db.Product(vid, pid)
	if vendor == "" {
		vendor = fmt.Sprintf("%04x", vid)
	}
	if product == "" {
		product = fmt.Sprintf("%04x", pid)
	}
	return vendor + " " + product
}

// Source returns the file the database was loaded from, or "" if none.
func (db *Database) Source() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.source
}

// Len returns the number of vendors and products known.
func (db *Database) Len() (vendors, products int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors), len(db.products)
}
