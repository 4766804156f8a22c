package ads1015

import (
	"time"

	"ads1015-go/errcode"
)

// SleepDelay is the default idle time before the chip is suspended.
const SleepDelay = 2000 * time.Millisecond

// Power is the supply-state collaborator. RequestActive blocks until the
// device is usable and takes a usage reference; a failed request must not
// leave one behind. RequestAutosuspend drops the reference and schedules a
// suspend after grace once the device is idle.
type Power interface {
	RequestActive() error
	MarkIdleEligible()
	RequestAutosuspend(grace time.Duration) error
}

func (d *Device) powerUp() error {
	return errcode.Wrap(errcode.Power, "power up", d.power.RequestActive())
}

func (d *Device) powerDown() error {
	d.power.MarkIdleEligible()
	return errcode.Wrap(errcode.Power, "power down", d.power.RequestAutosuspend(d.sleepDelay))
}

// setConvMode writes only the MODE bit.
func (d *Device) setConvMode(m Mode) error {
	return d.regs.updateBits(RegConfig, maskMode, uint16(CfgWord(0).WithMode(m)))
}

// setConvReadyPin turns ALERT/RDY into a conversion-ready output: the
// threshold registers get opposite sign bits (lo = 0x0000, hi = 0xFFFF)
// and the comparator queue asserts after one conversion.
func (d *Device) setConvReadyPin() error {
	if err := d.regs.write(RegLoThresh, 0x0000); err != nil {
		return err
	}
	if err := d.regs.write(RegHiThresh, 0xFFFF); err != nil {
		return err
	}
	return d.regs.updateBits(RegConfig, maskCompQueue, uint16(CfgWord(0).WithCompQueue(CompQueueAssertOne)))
}

// Suspend is the power-down callback: the chip stops converting.
func (d *Device) Suspend() error {
	d.log.Debug("suspend")
	return d.setConvMode(ModeSingleShot)
}

// Resume is the power-up callback: the chip returns to continuous mode and
// the next acquisition waits for a fresh conversion.
//
// It must not take the device lock; callers hold it while requesting power.
func (d *Device) Resume() error {
	d.log.Debug("resume")
	if err := d.setConvMode(ModeContinuous); err != nil {
		return err
	}
	d.resumed.Store(true)
	return nil
}
