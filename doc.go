/*

Package iostore is a read-only parser and chunk extractor for the IoStore
packaged game-asset container format.

A container is a table-of-contents sidecar (".utoc") plus one or more
content files (".ucas", "_s1.ucas", ...). Data is stored as fixed-size
compression blocks, optionally AES-encrypted, and indexed by 96-bit chunk
identifiers and an embedded directory tree.

Mount a container with Mount or MountFromMemory, look up chunks by id with
Container.Read, or enumerate the files it contains with
Container.ListFiles.

This package does not write containers, does not verify the block
signatures present in the format, and does not support multi-partition
mounting through MountFromMemory.

*/
package iostore
