package types

import (
	"fmt"
	"time"
)

// Inode formats
const (
	// XXX Do not forget to update Formats() and FormatChar() when you change this list
	FmtFile		=	"file"
	FmtDir		=	"dir"
	FmtSymlink	=	"symlink"
	FmtSocket	=	"socket"
	FmtPipe		=	"pipe"
	FmtCharDev	=	"chardev"
	FmtBlockDev	=	"blockdev"
)

func Formats() []string {
	return []string {
		FmtFile,
		FmtDir,
		FmtSymlink,
		FmtSocket,
		FmtPipe,
		FmtCharDev,
		FmtBlockDev,
	}
}

// FormatChar returns the ls(1) style type character of the format
func FormatChar(format string) byte {
	switch format {
		case FmtFile:		return '-'
		case FmtDir:		return 'd'
		case FmtSymlink:	return 'l'
		case FmtSocket:		return 's'
		case FmtPipe:		return 'p'
		case FmtCharDev:	return 'c'
		case FmtBlockDev:	return 'b'
		default:
			panic(fmt.Sprintf("Unsupported inode format %q", format))
	}
}

// Record fields, used as document field names by all stores
const (
	FieldID			=	"_id"
	FieldVolume		=	"volume"
	FieldFormat		=	"format"
	FieldUID		=	"uid"
	FieldGID		=	"gid"
	FieldSize		=	"size"
	FieldATime		=	"atime"
	FieldMTime		=	"mtime"
	FieldCTime		=	"ctime"
	FieldPerms		=	"permission_string"
	FieldFlags		=	"flags"
	FieldPaths		=	"paths"
	FieldDetails	=	"details"
)

// Keys of the details map
const (
	DetMimeType		=	"mime_type"
	DetSHA256		=	"sha256"
	DetReadlink		=	"readlink"

	// Mach-O specific
	DetUUID			=	"uuid"
	DetSymbols		=	"symbols"
	DetStrings		=	"strings"
	DetDylibs		=	"dylibs"
	DetIdentifier	=	"identifier"
	DetEntitlements	=	"entitlements"

	// Keys of the symbols map
	SymLocal		=	"local"
	SymUndef		=	"undef"
	SymObjCMethods	=	"objc_methods"
	SymObjCClasses	=	"objc_classes"
)

// Details is the open-ended enrichment map of the inode
type Details map[string]any

//
// Inode is the catalog record, one per distinct inode within a volume
//
type Inode struct {
	ID		string		`bson:"_id" json:"_id"`
	Volume	string		`bson:"volume" json:"volume"`
	Format	string		`bson:"format" json:"format"`
	UID		uint32		`bson:"uid" json:"uid"`
	GID		uint32		`bson:"gid" json:"gid"`
	Size	int64		`bson:"size" json:"size"`
	ATime	time.Time	`bson:"atime" json:"atime"`
	MTime	time.Time	`bson:"mtime" json:"mtime"`
	CTime	time.Time	`bson:"ctime" json:"ctime"`
	Perms	string		`bson:"permission_string" json:"permission_string"`
	Flags	[]string	`bson:"flags" json:"flags"`
	Paths	[]string	`bson:"paths" json:"paths"`
	Details	Details		`bson:"details" json:"details"`
}

// MakeID makes the record identifier from the volume label and the inode number.
// NOTE: the volume label is assumed to map to exactly one device
func MakeID(volume string, ino uint64) string {
	return fmt.Sprintf("%s:%d", volume, ino)
}

// Snapshot returns the nested map view of the record used by enrichment predicates.
// The details map is shared with the record, so handlers see each other's results
func (in *Inode) Snapshot() map[string]any {
	return map[string]any{
		FieldID:		in.ID,
		FieldVolume:	in.Volume,
		FieldFormat:	in.Format,
		FieldUID:		in.UID,
		FieldGID:		in.GID,
		FieldSize:		in.Size,
		FieldPerms:		in.Perms,
		FieldDetails:	map[string]any(in.Details),
	}
}

// Clone returns a deep enough copy of the record: the paths list and
// the top level of the details map are copied
func (in *Inode) Clone() *Inode {
	rv := *in

	rv.Flags = append([]string(nil), in.Flags...)
	rv.Paths = append([]string(nil), in.Paths...)
	if in.Details != nil {
		rv.Details = make(Details, len(in.Details))
		for k, v := range in.Details {
			rv.Details[k] = v
		}
	}

	return &rv
}

//
// EntitlementEntry is one key/value pair of a signed property list dict. The value
// is one of: bool, string, int64, []string or []EntitlementEntry (nested dict)
//
type EntitlementEntry struct {
	Name	string	`bson:"name" json:"name"`
	Value	any		`bson:"value" json:"value"`
}
