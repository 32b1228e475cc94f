// Package flashee emulates EEPROM semantics on top of raw NOR flash: a
// fixed, pre-declared set of small-integer-id variables, each an
// arbitrary-length byte payload, survives unexpected power loss at any
// point during any read or write.
package flashee
