package miner

import "github.com/eigerco/hashmint/internal/records"

// AdvanceAmp lowers the pool's amplifier by one once more than cycleSlots
// slots have passed since it last changed, and restarts the cycle at the
// current slot. The amplifier never goes below zero and a slot that is not
// past the last change is ignored. It reports whether amp changed.
func AdvanceAmp(g *records.Global, current, cycleSlots uint64) bool {
	if current <= g.LastAmpSlot || current-g.LastAmpSlot <= cycleSlots || g.Amp == 0 {
		return false
	}
	g.Amp--
	g.LastAmpSlot = current
	return true
}
