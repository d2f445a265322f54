// Package docdb is an embedded key-value store that keeps one nested
// document in one JSON or YAML file.
//
// Keys are dotted paths into the document:
//
//	db, err := docdb.Open(docdb.Options{Path: "databases/app.json"})
//	if err != nil {
//	    return err
//	}
//
//	_, err = db.Set("user.name", docdb.String("ada"))
//	name, ok, err := db.Get("user.name")
//
// Every call reads the file, and every mutation rewrites it atomically
// through [fs.FS.WriteFileAtomic]. Nothing is cached between calls, so
// edits made to the file by other programs are picked up immediately.
//
// All errors are [*Error] values wrapping one of the Err* sentinels.
package docdb
