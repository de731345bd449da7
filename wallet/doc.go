// Package wallet provides Ed25519 keypairs, ledger address derivation, and
// message signing for the sealvault pipeline.
//
// Addresses follow the ledger's scheme-tagged derivation: the address is the
// sha3-256 digest of a scheme byte followed by the public key. Mnemonic
// recovery and key custody are out of scope; callers supply seeds.
package wallet
