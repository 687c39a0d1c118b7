/*

cadfael is a command line interface to the filesystem inode catalog.

Usage:

  cadfael [Global options] import <volume> <root> [--keep]
  cadfael [Global options] reset <volume>
  cadfael [Global options] lookup [--volume V] [--perms P] [--path R] [--limit N]
  cadfael [Global options] macho <path>...

# Import

The import command crawls the tree under root and stores one record per inode
found as the volume with the provided label. Paths of the stored records are
relative to the root, so the same volume can be imported from different mount
points. Before crawling all records of the volume are deleted, use --keep to
add new records and paths to already existing ones. Records are never updated:
the metadata captured at the first encounter of the inode is kept.

Records of regular files carry the SHA-256 checksum and the MIME type of the
content. Files detected as Mach-O binaries are analyzed by the x-mach-binary
enrichment module. If an enrichment module fails the file is skipped and, if
the "faults" setting is configured, copied to the faults directory with the
checksum as the name.

# Database

The database address is set by --db, its scheme selects the backend:

  mongodb://host:port      MongoDB, --dbid is the database name
  redis://host:port[/db]   Redis with the RediSearch module, --dbid is the prefix of keys
  memory://name            in-process store, useful for dry runs

If authentication is required, use the --db-priv-cfg option to set the path to
the JSON file with authentication data. The file must be accessible only by its
owner. For details, see the database driver-specific information in the
dbi/{DBMS-name} directory.

# Settings

Settings below can be overridden by the file passed by --settings (yaml, json or
toml) and by CADFAEL_{NAME} environment variables, which take precedence:

  modules        list of enabled enrichment modules, default [x-mach-binary]
  faults         directory to save files failed enrichment, empty - do not save
  workers        number of crawler workers, 0 - number of CPUs
  poll_interval  interval of crawl progress reports, default 60s
  hash_chunk     size of chunks in which checksums are calculated, default 4096
  codesign       code signing inspector command, default [codesign -dvvv --entitlements :-]

# Examples

  # Import the mounted image as "sdk-14.2":
  cadfael --db mongodb://127.0.0.1:27017 --dbid catalog import sdk-14.2 /Volumes/SDK

  # Print all setuid executables of the volume:
  cadfael lookup --volume sdk-14.2 --perms -rwsr-xr-x

  # Analyze the binary without storing anything:
  cadfael macho /usr/bin/login

# Exit codes

  0 - OK
  1 - usage error
  2 - completed with warnings
  3 - errors occurred

*/
package main
