// Package sample defines the storage positions handled by the sample changer:
// pucks, the hot puck, plates and the pins held in a puck.
//
// A Position is a small comparable value. Two positions are equal, and hash
// identically as map keys, exactly when they refer to the same physical slot.
// Positions can only be obtained through the constructors of this package, which
// validate ids against a Layout and normalize firmware quirks:
//
//	p1, _ := sample.PinOf(3, 2)
//	puck, _ := sample.NewPuck(3)
//	p2, _ := sample.NewPin(puck, 2)
//	p1 == p2 // true
//
// The controller firmware reports the hot puck with id 100 in some telegrams
// while commands address it as 101. Every constructor silently maps the
// sentinel 100 to HotPuckID, so the sentinel never leaves this package.
//
// Metadata such as a resolved datamatrix or the pin cap type is never part of a
// Position; callers keep it beside the value.
package sample
