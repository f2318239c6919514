package main

import (
	"fmt"

	"github.com/harklabs/hark/internal/audio"
)

func printDevices() error {
	defer audio.Terminate()

	devices, err := audio.EnumerateDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no capture devices found")
		return nil
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s %3d  %-40s rates: %v\n", marker, d.ID, d.Label, d.SampleRates)
	}
	return nil
}
