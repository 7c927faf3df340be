// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package heatpump

import "time"

// trackLimits decides which tank limit values to record with the
// current snapshot. On the first snapshot ever, and on every tenth
// minute of the hour, the freshly read values are taken wholesale so
// the record can never go permanently stale. In between, each field
// carries forward the prior snapshot's value unless the prior value
// is set and the device now reports something different.
func trackLimits(prev *Snapshot, fresh TankLimits, now time.Time) TankLimits {
	if prev == nil || now.Minute()%10 == 0 {
		return fresh
	}

	result := prev.TankLimits
	if prev.LowerTankLowerLimit != 0 && prev.LowerTankLowerLimit != fresh.LowerTankLowerLimit {
		result.LowerTankLowerLimit = fresh.LowerTankLowerLimit
	}
	if prev.LowerTankUpperLimit != 0 && prev.LowerTankUpperLimit != fresh.LowerTankUpperLimit {
		result.LowerTankUpperLimit = fresh.LowerTankUpperLimit
	}
	if prev.UpperTankLowerLimit != 0 && prev.UpperTankLowerLimit != fresh.UpperTankLowerLimit {
		result.UpperTankLowerLimit = fresh.UpperTankLowerLimit
	}
	if prev.UpperTankUpperLimit != 0 && prev.UpperTankUpperLimit != fresh.UpperTankUpperLimit {
		result.UpperTankUpperLimit = fresh.UpperTankUpperLimit
	}
	return result
}
