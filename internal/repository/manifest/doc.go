// Package manifest persists the record of a packaging run.
//
// The Manifest lists the generated platform packages in selector order along
// with the SHA-512 checksum of every downloaded archive. FileRepository
// stores it as YAML next to the prebuilt packages; the resolve command reads
// it back to rebuild the selector.
package manifest
