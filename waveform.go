package epd154

// fullUpdateLUT is the full refresh waveform written to the LUT register.
var fullUpdateLUT = [153]byte{
	0x80, 0x48, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // LUT0: BB
	0x40, 0x48, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // LUT1: BW
	0x80, 0x48, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // LUT2: WB
	0x40, 0x48, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // LUT3: WW
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // LUT4: VCOM
	0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP0 A~D RP0
	0x08, 0x01, 0x00, 0x08, 0x01, 0x00, 0x02, // TP1 A~D RP1
	0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP2 A~D RP2
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP3 A~D RP3
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP4 A~D RP4
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP5 A~D RP5
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP6 A~D RP6
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP7 A~D RP7
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP8 A~D RP8
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP9 A~D RP9
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP10 A~D RP10
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // TP11 A~D RP11
	0x22, 0x22, 0x22, 0x22, 0x22, 0x22, 0x00, 0x00, 0x00, // FR0~5, XON
}

// Registers that depend on the waveform.
const (
	endOptionNormal    byte = 0x22
	gateDrivingVoltage byte = 0x17 // 20V
	sourceDrivingVSH1  byte = 0x41 // 15V
	sourceDrivingVSH2  byte = 0x00
	sourceDrivingVSL   byte = 0x32 // -15V
	vcomVoltage        byte = 0x20 // -0.8V
)

// loadWaveform writes the LUT and its dependent voltage registers. It runs
// once per Initialize, after the configuration sequence.
func (d *Dev) loadWaveform() error {
	if err := d.send(writeLutRegister, fullUpdateLUT[:]...); err != nil {
		return err
	}
	if err := d.send(endOptionControl, endOptionNormal); err != nil {
		return err
	}
	if err := d.send(gateDrivingVoltageControl, gateDrivingVoltage); err != nil {
		return err
	}
	if err := d.send(sourceDrivingVoltageControl, sourceDrivingVSH1, sourceDrivingVSH2, sourceDrivingVSL); err != nil {
		return err
	}
	return d.send(writeVcomRegister, vcomVoltage)
}
