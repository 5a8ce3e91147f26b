// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package topology

// PCI class and subclass names, see https://pci-ids.ucw.cz/read/PD/
var pciSubclassNames = map[uint16]string{
	0x0001: "VGA",

	0x0100: "SCSI",
	0x0101: "IDE",
	0x0102: "Floppy",
	0x0103: "IPI",
	0x0104: "RAID",
	0x0105: "ATA",
	0x0106: "SATA",
	0x0107: "SAS",
	0x0108: "NVMExp",

	0x0200: "Ethernet",
	0x0201: "TokenRing",
	0x0202: "FDDI",
	0x0203: "ATM",
	0x0204: "ISDN",
	0x0205: "WorldFip",
	0x0206: "PICMG",
	0x0207: "InfiniBand",
	0x0208: "Fabric",

	0x0300: "VGA",
	0x0301: "XGA",
	0x0302: "3D",

	0x0400: "MultimediaVideo",
	0x0401: "MultimediaAudio",
	0x0402: "Telephony",
	0x0403: "AudioDevice",

	0x0500: "RAM",
	0x0501: "Flash",

	0x0600: "HostBridge",
	0x0601: "ISABridge",
	0x0602: "EISABridge",
	0x0603: "MicroChannelBridge",
	0x0604: "PCIBridge",
	0x0605: "PCMCIABridge",
	0x0606: "NubusBridge",
	0x0607: "CardBusBridge",
	0x0608: "RACEwayBridge",
	0x0609: "SemiTransparentPCIBridge",
	0x060a: "InfiniBandPCIHostBridge",

	0x0700: "Serial",
	0x0701: "Parallel",
	0x0702: "MultiportSerial",
	0x0703: "Model",
	0x0704: "GPIB",
	0x0705: "SmartCard",

	0x0800: "PIC",
	0x0801: "DMA",
	0x0802: "Timer",
	0x0803: "RTC",
	0x0804: "PCIHotPlug",
	0x0805: "SDHost",
	0x0806: "IOMMU",

	0x0900: "Keyboard",
	0x0901: "DigitizerPen",
	0x0902: "Mouse",
	0x0903: "Scanern",
	0x0904: "Gameport",

	0x0b00: "386",
	0x0b01: "486",
	0x0b02: "Pentium",
	0x0b10: "Alpha",
	0x0b20: "PowerPC",
	0x0b30: "MIPS",
	0x0b40: "Co-Processor",

	0x0c00: "FireWire",
	0x0c01: "ACCESS",
	0x0c02: "SSA",
	0x0c03: "USB",
	0x0c04: "FibreChannel",
	0x0c05: "SMBus",
	0x0c06: "InfiniBand",
	0x0c07: "IPMI-SMIC",
	0x0c08: "SERCOS",
	0x0c09: "CANBUS",

	0x0d00: "IRDA",
	0x0d01: "ConsumerIR",
	0x0d10: "RF",
	0x0d11: "Bluetooth",
	0x0d12: "Broadband",
	0x0d20: "802.1a",
	0x0d21: "802.1b",

	0x0e00: "I2O",
}

var pciBaseClassNames = map[uint16]string{
	0x01: "Storage",
	0x02: "Network",
	0x03: "Display",
	0x04: "Multimedia",
	0x05: "Memory",
	0x06: "Bridge",
	0x07: "Communication",
	0x08: "SystemPeripheral",
	0x09: "Input",
	0x0a: "DockingStation",
	0x0b: "Processor",
	0x0c: "SerialBus",
	0x0d: "Wireless",
	0x0e: "Intelligent",
	0x0f: "Satellite",
	0x10: "Encryption",
	0x11: "SignalProcessing",
	0x12: "ProcessingAccelerator",
	0x13: "Instrumentation",
	0x40: "Co-Processor",
}

// PCIClassString returns a short name for a 16-bit PCI class/subclass id,
// falling back to the base class name and then "Other".
func PCIClassString(classID uint16) string {
	if name, ok := pciSubclassNames[classID]; ok {
		return name
	}
	if name, ok := pciBaseClassNames[classID>>8]; ok {
		return name
	}
	return "Other"
}
