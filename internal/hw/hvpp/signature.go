package hvpp

import "fmt"

// Signature is the three-byte device code. Byte 0 is the vendor (0x1e
// for Atmel), byte 1 the flash size class, byte 2 the part number.
type Signature [3]byte

func (s Signature) String() string {
	return fmt.Sprintf("%02x %02x %02x", s[0], s[1], s[2])
}

var knownDevices = map[Signature]string{
	{0x1e, 0x91, 0x0a}: "ATtiny2313",
	{0x1e, 0x92, 0x05}: "ATmega48",
	{0x1e, 0x92, 0x0a}: "ATmega48P",
	{0x1e, 0x93, 0x07}: "ATmega8",
	{0x1e, 0x93, 0x0a}: "ATmega88",
	{0x1e, 0x93, 0x0f}: "ATmega88P",
	{0x1e, 0x94, 0x03}: "ATmega16",
	{0x1e, 0x94, 0x06}: "ATmega168",
	{0x1e, 0x94, 0x0b}: "ATmega168P",
	{0x1e, 0x95, 0x02}: "ATmega32",
	{0x1e, 0x95, 0x0f}: "ATmega328P",
	{0x1e, 0x95, 0x14}: "ATmega328",
	{0x1e, 0x96, 0x0a}: "ATmega644P",
	{0x1e, 0x97, 0x05}: "ATmega1284P",
	{0x1e, 0x98, 0x01}: "ATmega2560",
}

// Device returns the part name for a known signature.
func (s Signature) Device() (string, bool) {
	name, ok := knownDevices[s]
	return name, ok
}
