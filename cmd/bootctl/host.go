package main

import log "github.com/sirupsen/logrus"

// logIndicator stands in for the board LED on a machine with no LED: every
// transition is logged instead of driving a GPIO.
type logIndicator struct{}

func (logIndicator) On()     { log.Debug("indicator: on") }
func (logIndicator) Off()    { log.Debug("indicator: off") }
func (logIndicator) Toggle() { log.Debug("indicator: toggle") }

// logJumper stands in for the architecture-specific trampoline: there is no
// user vector table to branch into on a host machine, so it just logs the
// address the real firmware would jump to and returns, so the harness can
// keep running for observation instead of the process "exiting" into
// nonexistent code.
type logJumper struct{}

func (logJumper) Jump(vectorAddr uint32) error {
	log.Infof("jumper: would branch to vector table at 0x%08x", vectorAddr)
	return nil
}
