// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

// A Profile selects between layout-compatible decoder calibrations for
// a target flavor. Profiles are immutable values; the caller of a walk
// picks one, and no autodetection is attempted.
//
// The only calibration that varies in practice is the string payload
// offset: some CPython 2.7-compatible builds store the inline character
// array four bytes earlier than stock 2.7. The origin of that
// discrepancy is unknown; the adjustment is empirical, not derived.
type Profile struct {
	name          string
	stringPayload uint64
}

var (
	// StandardStrings decodes string payloads at offsetof(ob_sval).
	StandardStrings = Profile{name: "standard", stringPayload: stringPayloadOff}

	// SmallStrings decodes string payloads at offsetof(ob_sval) - 4,
	// matching targets with the four-byte-smaller string header.
	SmallStrings = Profile{name: "small-strings", stringPayload: stringPayloadOff - 4}
)

// String returns the profile's name.
func (p Profile) String() string { return p.name }

// ProfileByName maps a profile name to its value. It recognizes the
// names reported by Profile.String.
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case StandardStrings.name:
		return StandardStrings, true
	case SmallStrings.name:
		return SmallStrings, true
	}
	return Profile{}, false
}
