package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Setup       SetupCommand       `command:"setup" description:"Find the arm, calibrate it and write a rig profile"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Drive the arm from a headset pendant"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Flexpendant - jog a six-axis arm from VR hand controllers"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
