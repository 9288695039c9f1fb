// Package usbid names vendor and product IDs using the usb.ids database
// shipped with most Linux distributions.
//
// The database is optional: every lookup falls back to the hexadecimal ID, so
// the CLI prints something sensible on systems without it.
//
//	db := usbid.New()
//	db.Load()
//	fmt.Println(db.Name(0x0483, 0x5740)) // STMicroelectronics Virtual COM Port
//
// A Database is safe for concurrent use.
package usbid
