package codec

// Elsys sensors (ERS, ERS-CO2, ELT) emit a type-length-value stream:
// one type byte followed by a fixed-size big-endian value. Only the
// channels the platform tracks are decoded; an unknown type byte aborts
// the payload since field sizes beyond it are unknowable.

const (
	elsysTypeTemperature = 0x01 // int16, tenths of a degree C
	elsysTypeHumidity    = 0x02 // uint8, percent
	elsysTypeLight       = 0x04 // uint16, lux
	elsysTypeMotion      = 0x05 // uint8, count
	elsysTypeCO2         = 0x06 // uint16, ppm
	elsysTypeBattery     = 0x07 // uint16, millivolt
)

// ElsysDecoder decodes the Elsys TLV payload format.
type ElsysDecoder struct{}

func NewElsysDecoder() *ElsysDecoder {
	return &ElsysDecoder{}
}

func (d *ElsysDecoder) Decode(payload []byte) (map[string]float64, error) {
	readings := make(map[string]float64)

	for i := 0; i < len(payload); {
		switch payload[i] {
		case elsysTypeTemperature:
			if i+2 >= len(payload) {
				return nil, ErrMalformedPayload
			}
			raw := int16(uint16(payload[i+1])<<8 | uint16(payload[i+2]))
			readings["temperature"] = float64(raw) / 10
			i += 3
		case elsysTypeHumidity:
			if i+1 >= len(payload) {
				return nil, ErrMalformedPayload
			}
			readings["humidity"] = float64(payload[i+1])
			i += 2
		case elsysTypeLight:
			if i+2 >= len(payload) {
				return nil, ErrMalformedPayload
			}
			readings["light"] = float64(uint16(payload[i+1])<<8 | uint16(payload[i+2]))
			i += 3
		case elsysTypeMotion:
			if i+1 >= len(payload) {
				return nil, ErrMalformedPayload
			}
			readings["motion"] = float64(payload[i+1])
			i += 2
		case elsysTypeCO2:
			if i+2 >= len(payload) {
				return nil, ErrMalformedPayload
			}
			readings["co2"] = float64(uint16(payload[i+1])<<8 | uint16(payload[i+2]))
			i += 3
		case elsysTypeBattery:
			if i+2 >= len(payload) {
				return nil, ErrMalformedPayload
			}
			readings["battery"] = float64(uint16(payload[i+1])<<8 | uint16(payload[i+2]))
			i += 3
		default:
			return nil, ErrMalformedPayload
		}
	}

	if len(readings) == 0 {
		return nil, ErrMalformedPayload
	}
	return readings, nil
}
