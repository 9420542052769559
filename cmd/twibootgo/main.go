package main

import (
	"log"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/sci-bots/twibootgo/twiboot"
)

const (
	AppVersion = "0.1.0"
)

var settings Settings

// Quick way to fail on error, since most commands are "doing" something on
// behalf of something else.
func fatalIfErr(subject string, doing string, err error) {
	if err != nil {
		log.Fatalf("%s - Couldn't %s: %s", subject, doing, err)
	}
}

// Open the bus and wrap the bootloader at the configured address. The
// auto-start timeout is disabled right away so the bootloader doesn't
// jump into the application while we're mid-conversation.
func connectBootloader(busArg string) (*twiboot.I2CBus, *twiboot.Bootloader) {
	busName := settings.resolveBus(busArg)
	address, err := settings.resolveAddress(cli.Address)
	fatalIfErr(busArg, "parse device address", err)
	bus, err := twiboot.OpenBus(busName)
	fatalIfErr(busName, "open bus", err)
	bl := twiboot.NewBootloader(bus, address)
	err = bl.DisableAutoStart()
	fatalIfErr(busName, "reach bootloader", err)
	log.Printf("Connected to bootloader at %#02x on bus '%s'\n", address, busName)
	return bus, bl
}

func forceCreate(fp string) *os.File {
	f, err := os.Create(fp)
	fatalIfErr(fp, "create write file", err)
	return f
}

// **********************************
// *       DEVICE COMMANDS          *
// **********************************

// Scan command
type ScanCmd struct {
}

func (c *ScanCmd) Run() error {
	buses, err := twiboot.ListBuses()
	fatalIfErr("scan", "list i2c buses", err)
	log.Printf("Scan found %d i2c buses\n", len(buses))
	PrintJson(buses)
	return nil
}

// Query command
type QueryCmd struct {
	Bus string `arg:"" optional:"" help:"The i2c bus the device hangs off (empty for first available)"`
}

func (c *QueryCmd) Run() error {
	bus, bl := connectBootloader(c.Bus)
	defer bus.Close()
	version, err := bl.ReadVersion()
	fatalIfErr(c.Bus, "read bootloader version", err)
	info, err := bl.ReadChipInfo()
	fatalIfErr(c.Bus, "read chip info", err)
	result := make(map[string]interface{})
	result["Version"] = version
	result["Signature"] = info.SignatureString()
	result["PageSize"] = info.PageSize
	result["FlashSize"] = info.FlashSize
	result["EepromSize"] = info.EepromSize
	PrintJson(result)
	return nil
}

// Start application command
type StartCmd struct {
	Bus string `arg:"" optional:"" help:"The i2c bus the device hangs off"`
}

func (c *StartCmd) Run() error {
	bus, bl := connectBootloader(c.Bus)
	defer bus.Close()
	err := bl.StartApplication()
	fatalIfErr(c.Bus, "start application", err)
	log.Println("Application started; bootloader is gone until next reset")
	return nil
}

// Stay-in-bootloader command
type StayCmd struct {
	Bus string `arg:"" optional:"" help:"The i2c bus the device hangs off"`
}

func (c *StayCmd) Run() error {
	// connectBootloader already sends the abort-timeout command
	bus, _ := connectBootloader(c.Bus)
	defer bus.Close()
	log.Println("Bootloader auto-start timeout disabled")
	return nil
}

// **********************************
// *        FLASH COMMANDS          *
// **********************************

// Flash write command
type FlashWriteCmd struct {
	Bus      string        `arg:"" optional:"" help:"The i2c bus the device hangs off"`
	Infile   string        `type:"existingfile" default:"firmware.hex" short:"i" help:"Intel HEX file to flash"`
	NoVerify bool          `help:"Skip the read-back verification of each page"`
	Delay    time.Duration `help:"Base settle delay between flash transactions"`
	RunNow   bool          `help:"Start the application once flashing is done"`
}

func (c *FlashWriteCmd) Run() error {
	bus, bl := connectBootloader(c.Bus)
	defer bus.Close()
	delay, err := settings.resolveDelay(c.Delay)
	fatalIfErr(c.Bus, "resolve delay", err)
	options := twiboot.DefaultWriteOptions()
	options.Verify = !c.NoVerify
	options.BaseDelay = delay
	started := time.Now()
	err = twiboot.WriteFirmwareFile(bl, c.Infile, options)
	fatalIfErr(c.Infile, "write firmware", err)
	log.Printf("Flashed %s in %s\n", c.Infile, time.Since(started))
	if c.RunNow {
		err = bl.StartApplication()
		fatalIfErr(c.Bus, "start application", err)
	}
	result := make(map[string]interface{})
	result["Filename"] = c.Infile
	result["Verified"] = !c.NoVerify
	result["Elapsed"] = time.Since(started).String()
	PrintJson(result)
	return nil
}

// Flash read command
type FlashReadCmd struct {
	Bus     string `arg:"" optional:"" help:"The i2c bus the device hangs off"`
	Outfile string `type:"path" short:"o" help:"Where to put the flash dump"`
	Length  int    `help:"How many bytes to read (0 for the whole flash)"`
}

func (c *FlashReadCmd) Run() error {
	if c.Outfile == "" {
		c.Outfile = "flash_" + time.Now().Format("20060102-150405") + ".bin"
	}
	bus, bl := connectBootloader(c.Bus)
	defer bus.Close()
	delay, err := settings.resolveDelay(0)
	fatalIfErr(c.Bus, "resolve delay", err)
	dump, err := twiboot.DumpFlash(bl, c.Length, delay)
	fatalIfErr(c.Bus, "read flash", err)
	file := forceCreate(c.Outfile)
	defer file.Close()
	_, err = file.Write(dump)
	fatalIfErr(c.Outfile, "write dump", err)
	log.Printf("Read %d bytes of flash to %s\n", len(dump), c.Outfile)
	result := make(map[string]interface{})
	result["Filename"] = c.Outfile
	result["Length"] = len(dump)
	result["MD5"] = Md5String(dump)
	PrintJson(result)
	return nil
}

// **********************************
// *        EEPROM COMMANDS         *
// **********************************

// Eeprom read command
type EepromReadCmd struct {
	Bus     string `arg:"" optional:"" help:"The i2c bus the device hangs off"`
	Outfile string `type:"path" short:"o" help:"Where to put the eeprom dump"`
}

func (c *EepromReadCmd) Run() error {
	if c.Outfile == "" {
		c.Outfile = "eeprom_" + time.Now().Format("20060102-150405") + ".bin"
	}
	bus, bl := connectBootloader(c.Bus)
	defer bus.Close()
	delay, err := settings.resolveDelay(0)
	fatalIfErr(c.Bus, "resolve delay", err)
	dump, err := twiboot.DumpEeprom(bl, delay)
	fatalIfErr(c.Bus, "read eeprom", err)
	file := forceCreate(c.Outfile)
	defer file.Close()
	_, err = file.Write(dump)
	fatalIfErr(c.Outfile, "write dump", err)
	log.Printf("Read %d bytes of eeprom to %s\n", len(dump), c.Outfile)
	result := make(map[string]interface{})
	result["Filename"] = c.Outfile
	result["Length"] = len(dump)
	result["MD5"] = Md5String(dump)
	PrintJson(result)
	return nil
}

// Eeprom write command
type EepromWriteCmd struct {
	Bus    string `arg:"" optional:"" help:"The i2c bus the device hangs off"`
	Infile string `type:"existingfile" default:"eeprom.bin" short:"i" help:"Full eeprom image to write"`
}

func (c *EepromWriteCmd) Run() error {
	image, err := os.ReadFile(c.Infile)
	fatalIfErr(c.Infile, "read eeprom image", err)
	bus, bl := connectBootloader(c.Bus)
	defer bus.Close()
	delay, err := settings.resolveDelay(0)
	fatalIfErr(c.Bus, "resolve delay", err)
	err = twiboot.RestoreEeprom(bl, image, delay)
	fatalIfErr(c.Infile, "write eeprom", err)
	log.Printf("Wrote %d bytes of eeprom from %s\n", len(image), c.Infile)
	return nil
}

// **********************************
// *    ALL TOGETHER COMMANDS       *
// **********************************

var cli struct {
	Device struct {
		Scan  ScanCmd  `cmd:"" help:"List the i2c buses available on this host"`
		Query QueryCmd `cmd:"" help:"Read the bootloader version and chip info"`
		Start StartCmd `cmd:"" help:"Hand control to the application code"`
		Stay  StayCmd  `cmd:"" help:"Keep the bootloader resident (disable its start timeout)"`
	} `cmd:"" help:"Commands which inspect or steer the device"`
	Flash struct {
		Write FlashWriteCmd `cmd:"" help:"Flash an Intel HEX firmware image (write/verify per page)"`
		Read  FlashReadCmd  `cmd:"" help:"Dump flash contents to a .bin file"`
	} `cmd:"" help:"Commands which work on flash memory"`
	Eeprom struct {
		Read  EepromReadCmd  `cmd:"" help:"Dump the whole eeprom to a .bin file"`
		Write EepromWriteCmd `cmd:"" help:"Write a full eeprom image back to the device"`
	} `cmd:"" help:"Commands which work on eeprom"`
	Address string           `help:"I2C address of the bootloader (e.g. 0x29)"`
	Config  string           `type:"existingfile" help:"Optional toml file with bus/address/delay defaults"`
	Version kong.VersionFlag `help:"Show version information"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("twibootgo"),
		kong.ShortUsageOnError(),
		kong.Description("A set of tools for flashing twiboot devices over i2c"),
		kong.Vars{
			"version": AppVersion,
		},
	)
	loaded, err := loadSettings(cli.Config)
	if err != nil {
		log.Fatalf("%s", err)
	}
	settings = loaded
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
