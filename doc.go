/*
Cadfael package - provides tools for cataloging filesystem trees: one record per
inode of the crawled volume stored in the document database.

# Key Features

  * Parallel crawling of large trees, each worker uses its own database session
  * Hard links are stored as one record with all paths relative to the volume root
  * SHA-256 checksums and MIME types of regular files
  * Analysis of Mach-O binaries: symbols, strings, linked libraries, code signature entitlements
  * Several database backends: MongoDB, Redis with the RediSearch module, in-memory store

# Key Components

  * cmd/cadfael - command line interface to import, reset and look up volumes
  * crawler - tree walker, inode extractor and the pool of workers
  * enrich - registry of enrichment modules, enrich/macho - the Mach-O analyzer
  * dbi - database backends of the catalog

See the corresponding subdirectories for more information about these components.

*/
package cadfael
