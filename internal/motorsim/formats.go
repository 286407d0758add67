package motorsim

import "fmt"

// DLTRegisters formats t as register messages understood by DLT viewers.
func DLTRegisters(t Telemetry) []string {
	return []string{
		fmt.Sprintf("REG:SPEED:%.2f", t.Speed),
		fmt.Sprintf("REG:TORQUE:%.2f", t.Torque),
		fmt.Sprintf("REG:TEMP:%.2f", t.Temperature),
		fmt.Sprintf("REG:CURRENT:%.2f", t.Current),
		"REG:STATUS:" + t.Status,
	}
}

// DLTTrace formats t as timestamped register updates for a trace view.
func DLTTrace(t Telemetry) []string {
	return []string{
		fmt.Sprintf("MOTOR:%d:update:SPEED=%.0f", t.Timestamp, t.Speed),
		fmt.Sprintf("MOTOR:%d:update:TORQUE=%.1f", t.Timestamp, t.Torque),
		fmt.Sprintf("MOTOR:%d:update:TEMP=%.1f", t.Timestamp, t.Temperature),
		fmt.Sprintf("MOTOR:%d:update:CURRENT=%.2f", t.Timestamp, t.Current),
	}
}

// RegisterDump formats t as a single line.
func RegisterDump(t Telemetry) string {
	return fmt.Sprintf("SPEED:%.0f TORQUE:%.1f TEMP:%.1f CURRENT:%.2f STATUS:%s",
		t.Speed, t.Torque, t.Temperature, t.Current, t.Status)
}

// ChartData formats t as Name:Timestamp:Value series points.
func ChartData(t Telemetry) []string {
	return []string{
		fmt.Sprintf("SPEED:%d:%.2f", t.Timestamp, t.Speed),
		fmt.Sprintf("TORQUE:%d:%.2f", t.Timestamp, t.Torque),
		fmt.Sprintf("TEMP:%d:%.2f", t.Timestamp, t.Temperature),
		fmt.Sprintf("CURRENT:%d:%.2f", t.Timestamp, t.Current),
	}
}
