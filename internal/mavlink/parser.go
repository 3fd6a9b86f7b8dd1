package mavlink

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/flightchat/backend/internal/models"

	"github.com/google/uuid"
)

const (
	frameSTX  = 0xFE // MAVLink v1 start byte
	headerLen = 6    // stx, payload len, seq, sysid, compid, msgid
	crcLen    = 2
)

// clockDomain identifies which onboard clock a message type reports.
// GPS messages carry epoch-scale time_usec while most others carry
// time_boot_ms, so each domain keeps its own rebase offset.
type clockDomain uint8

const (
	clockNone clockDomain = iota
	clockUsec
	clockBootMS
)

// msgDef describes how to decode one known message ID. Decode returns the
// field map and the message's native timestamp in seconds (zero when the
// type carries no clock field).
type msgDef struct {
	name       string
	payloadLen int
	crcExtra   uint8
	clock      clockDomain
	decode     func(p []byte) (fields map[string]any, ts float64)
}

// Message definitions for the decoded vocabulary. Payload layouts follow the
// MAVLink v1 wire order (fields sorted by size, little-endian).
var msgDefs = map[uint8]msgDef{
	0:   {models.TypeHeartbeat, 9, 50, clockNone, decodeHeartbeat},
	24:  {models.TypeGPSRawInt, 30, 24, clockUsec, decodeGPSRawInt},
	30:  {models.TypeAttitude, 28, 39, clockBootMS, decodeAttitude},
	33:  {models.TypeGlobalPosInt, 28, 104, clockBootMS, decodeGlobalPositionInt},
	65:  {models.TypeRCChannels, 42, 118, clockBootMS, decodeRCChannels},
	74:  {models.TypeVFRHUD, 20, 20, clockNone, decodeVFRHUD},
	147: {models.TypeBatteryStatus, 36, 154, clockNone, decodeBatteryStatus},
	253: {models.TypeStatusText, 51, 83, clockNone, decodeStatusText},
}

// Parse decodes a MAVLink v1 frame stream into an immutable FlightLog.
// Malformed and unrecognized frames are skipped. It fails with a ParseError
// only when the stream is shorter than one frame or when zero messages are
// recoverable.
func Parse(raw []byte, filename string) (*models.FlightLog, error) {
	if len(raw) < headerLen+crcLen {
		return nil, &models.ParseError{Reason: "truncated header"}
	}

	var messages []models.TelemetryMessage
	type decoded struct {
		msg   models.TelemetryMessage
		ts    float64
		clock clockDomain
	}
	var frames []decoded

	i := 0
	for i+headerLen+crcLen <= len(raw) {
		if raw[i] != frameSTX {
			i++
			continue
		}

		payloadLen := int(raw[i+1])
		msgID := raw[i+5]
		frameEnd := i + headerLen + payloadLen + crcLen
		if frameEnd > len(raw) {
			// Truncated tail frame, or a stray start byte with a bogus
			// length. Keep scanning.
			i++
			continue
		}

		def, known := msgDefs[msgID]
		if !known || payloadLen != def.payloadLen {
			i++
			continue
		}

		if !checksumOK(raw[i+1:i+headerLen+payloadLen], raw[i+headerLen+payloadLen:frameEnd], def.crcExtra) {
			i++
			continue
		}

		payload := raw[i+headerLen : i+headerLen+payloadLen]
		fields, ts := def.decode(payload)
		frames = append(frames, decoded{
			msg: models.TelemetryMessage{
				Type:   def.name,
				Fields: fields,
			},
			ts:    ts,
			clock: def.clock,
		})
		i = frameEnd
	}

	if len(frames) == 0 {
		return nil, &models.ParseError{Reason: "no recoverable frames"}
	}

	// Rebase native clocks to log-relative seconds and clamp non-decreasing.
	// Each clock domain gets its own base, aligned with the running timestamp
	// at its first sample, so an epoch-scale time_usec stream does not
	// flatten a time_boot_ms stream (or vice versa). Messages without a
	// clock field inherit the running timestamp.
	bases := make(map[clockDomain]float64)
	last := 0.0
	for _, f := range frames {
		t := last
		if f.clock != clockNone {
			base, seen := bases[f.clock]
			if !seen {
				base = f.ts - last
				bases[f.clock] = base
			}
			t = f.ts - base
			if t < last {
				t = last
			}
		}
		f.msg.Timestamp = t
		last = t
		messages = append(messages, f.msg)
	}

	log := &models.FlightLog{
		ID:         uuid.NewString(),
		Filename:   filename,
		Size:       int64(len(raw)),
		UploadedAt: time.Now().UTC(),
		Messages:   messages,
		TimeRange: models.TimeRange{
			Start:    messages[0].Timestamp,
			End:      messages[len(messages)-1].Timestamp,
			Duration: messages[len(messages)-1].Timestamp - messages[0].Timestamp,
		},
	}
	return log, nil
}

// checksumOK verifies the X25 CRC over the frame bytes after the start byte,
// seeded with the per-message CRC_EXTRA.
func checksumOK(body, ck []byte, crcExtra uint8) bool {
	crc := x25Init()
	for _, b := range body {
		crc = x25Accumulate(crc, b)
	}
	crc = x25Accumulate(crc, crcExtra)
	return ck[0] == byte(crc&0xFF) && ck[1] == byte(crc>>8)
}

func x25Init() uint16 {
	return 0xFFFF
}

func x25Accumulate(crc uint16, b byte) uint16 {
	tmp := b ^ byte(crc&0xFF)
	tmp ^= tmp << 4
	return (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

func u16(p []byte) float64 { return float64(binary.LittleEndian.Uint16(p)) }
func i16(p []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(p))) }
func u32(p []byte) float64 { return float64(binary.LittleEndian.Uint32(p)) }
func i32(p []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(p))) }
func u64(p []byte) float64 { return float64(binary.LittleEndian.Uint64(p)) }
func f32(p []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
}

func decodeHeartbeat(p []byte) (map[string]any, float64) {
	return map[string]any{
		"custom_mode":   u32(p[0:]),
		"type":          float64(p[4]),
		"autopilot":     float64(p[5]),
		"base_mode":     float64(p[6]),
		"system_status": float64(p[7]),
	}, 0
}

func decodeGPSRawInt(p []byte) (map[string]any, float64) {
	ts := u64(p[0:]) / 1e6
	return map[string]any{
		"lat":                i32(p[8:]) / 1e7,
		"lon":                i32(p[12:]) / 1e7,
		"alt":                i32(p[16:]) / 1000.0, // mm to m
		"eph":                u16(p[20:]),
		"epv":                u16(p[22:]),
		"vel":                u16(p[24:]) / 100.0,
		"cog":                u16(p[26:]) / 100.0,
		"fix_type":           float64(p[28]),
		"satellites_visible": float64(p[29]),
	}, ts
}

func decodeAttitude(p []byte) (map[string]any, float64) {
	ts := u32(p[0:]) / 1000.0
	return map[string]any{
		"roll":       f32(p[4:]),
		"pitch":      f32(p[8:]),
		"yaw":        f32(p[12:]),
		"rollspeed":  f32(p[16:]),
		"pitchspeed": f32(p[20:]),
		"yawspeed":   f32(p[24:]),
	}, ts
}

func decodeGlobalPositionInt(p []byte) (map[string]any, float64) {
	ts := u32(p[0:]) / 1000.0
	return map[string]any{
		"lat":          i32(p[4:]) / 1e7,
		"lon":          i32(p[8:]) / 1e7,
		"alt":          i32(p[12:]) / 1000.0,
		"relative_alt": i32(p[16:]) / 1000.0,
		"vx":           i16(p[20:]) / 100.0,
		"vy":           i16(p[22:]) / 100.0,
		"vz":           i16(p[24:]) / 100.0,
		"hdg":          u16(p[26:]) / 100.0,
	}, ts
}

func decodeRCChannels(p []byte) (map[string]any, float64) {
	ts := u32(p[0:]) / 1000.0
	fields := map[string]any{
		"chancount": float64(p[40]),
		"rssi":      float64(p[41]),
	}
	for ch := 0; ch < 8; ch++ {
		fields[fmt.Sprintf("chan%d_raw", ch+1)] = u16(p[4+2*ch:])
	}
	return fields, ts
}

func decodeVFRHUD(p []byte) (map[string]any, float64) {
	return map[string]any{
		"airspeed":    f32(p[0:]),
		"groundspeed": f32(p[4:]),
		"alt":         f32(p[8:]),
		"climb":       f32(p[12:]),
		"heading":     i16(p[16:]),
		"throttle":    u16(p[18:]),
	}, 0
}

func decodeBatteryStatus(p []byte) (map[string]any, float64) {
	fields := map[string]any{
		"current_consumed":  i32(p[0:]),
		"energy_consumed":   i32(p[4:]),
		"current_battery":   i16(p[30:]) / 100.0,
		"id":                float64(p[32]),
		"battery_remaining": float64(int8(p[35])),
	}
	// INT16_MAX means the sensor does not report temperature.
	if raw := int16(binary.LittleEndian.Uint16(p[8:])); raw != math.MaxInt16 {
		fields["temperature"] = float64(raw) / 100.0 // cdegC to degC
	}
	if mv := binary.LittleEndian.Uint16(p[10:]); mv != math.MaxUint16 {
		fields["voltage"] = float64(mv) / 1000.0
	}
	return fields, 0
}

func decodeStatusText(p []byte) (map[string]any, float64) {
	text := p[1:]
	end := len(text)
	for j, b := range text {
		if b == 0 {
			end = j
			break
		}
	}
	return map[string]any{
		"severity": float64(p[0]),
		"text":     string(text[:end]),
	}, 0
}
