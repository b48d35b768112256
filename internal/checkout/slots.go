package checkout

import (
	"time"

	"github.com/angelmondragon/grocerycart/pkg/types"
)

// Delivery windows offered every day. A window closes for same-day delivery
// once the local hour reaches its end hour.
var slotWindows = []types.DeliverySlot{
	{Value: "morning", Label: "Morning (8AM - 11AM)", WindowStartHour: 8, WindowEndHour: 11},
	{Value: "afternoon", Label: "Afternoon (12PM - 3PM)", WindowStartHour: 12, WindowEndHour: 15},
	{Value: "evening", Label: "Evening (4PM - 7PM)", WindowStartHour: 16, WindowEndHour: 19},
	{Value: "night", Label: "Night (8PM - 10PM)", WindowStartHour: 20, WindowEndHour: 22},
}

// SlotAvailable reports whether a window ending at endHour can still be
// booked on date, given the current local time.
func SlotAvailable(date types.Date, endHour int, now time.Time) bool {
	if date != types.DateOf(now) {
		return true
	}
	return now.Hour() < endHour
}

// SlotsFor returns every window with availability computed for date.
func SlotsFor(date types.Date, now time.Time) []types.DeliverySlot {
	out := make([]types.DeliverySlot, len(slotWindows))
	for i, slot := range slotWindows {
		slot.Available = SlotAvailable(date, slot.WindowEndHour, now)
		out[i] = slot
	}
	return out
}

// DateWindow returns the next days calendar days starting today.
func DateWindow(now time.Time, days int) []types.Date {
	today := types.DateOf(now)
	out := make([]types.Date, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, today.AddDays(i))
	}
	return out
}

func findSlot(slots []types.DeliverySlot, value string) (types.DeliverySlot, bool) {
	for _, slot := range slots {
		if slot.Value == value {
			return slot, true
		}
	}
	return types.DeliverySlot{}, false
}

func firstAvailable(slots []types.DeliverySlot) (types.DeliverySlot, bool) {
	for _, slot := range slots {
		if slot.Available {
			return slot, true
		}
	}
	return types.DeliverySlot{}, false
}

// Slot looks up a delivery window by value, without availability.
func Slot(value string) (types.DeliverySlot, bool) {
	return findSlot(slotWindows, value)
}
