package msc

// Command Block Wrapper (CBW) constants.
const (
	CBWSignature   = 0x43425355 // "USBC" signature
	CBWSize        = 31         // Fixed CBW size in bytes
	CBWFlagDataOut = 0x00       // Data transfer: host to device
	CBWFlagDataIn  = 0x80       // Data transfer: device to host
)

// Command Status Wrapper (CSW) constants.
const (
	CSWSignature        = 0x53425355 // "USBS" signature
	CSWSize             = 13         // Fixed CSW size in bytes
	CSWStatusGood       = 0x00       // Command passed
	CSWStatusFailed     = 0x01       // Command failed
	CSWStatusPhaseError = 0x02       // Phase error occurred
)

// SCSI operation codes understood by the Responder.
const (
	SCSITestUnitReady        = 0x00
	SCSIRequestSense         = 0x03
	SCSIInquiry              = 0x12
	SCSIModeSense6           = 0x1A
	SCSIStartStopUnit        = 0x1B
	SCSIPreventAllowRemoval  = 0x1E
	SCSIReadFormatCapacities = 0x23
	SCSIReadCapacity10       = 0x25
	SCSIRead10               = 0x28
	SCSIWrite10              = 0x2A
	SCSIVerify10             = 0x2F
	SCSISynchronizeCache10   = 0x35
	SCSIReportLUNs           = 0xA0
)

// SCSI sense keys.
const (
	SenseNoSense        = 0x00 // No error
	SenseNotReady       = 0x02 // Device not ready
	SenseMediumError    = 0x03 // Medium error
	SenseIllegalRequest = 0x05 // Illegal request
	SenseUnitAttention  = 0x06 // Unit attention
)

// Additional Sense Codes (ASC).
const (
	ASCNoAdditionalInfo      = 0x00 // No additional sense information
	ASCInvalidCommand        = 0x20 // Invalid command operation code
	ASCLBAOutOfRange         = 0x21 // Logical block address out of range
	ASCInvalidFieldInCDB     = 0x24 // Invalid field in CDB
	ASCNotReadyToReadyChange = 0x28 // Not ready to ready change
	ASCMediumNotPresent      = 0x3A // Medium not present
)

// Sense data response codes.
const (
	SenseFixedCurrent      = 0x70
	SenseDescriptorCurrent = 0x72
	SenseFixedSize         = 18
	SenseDescriptorSize    = 8
)

// START STOP UNIT power conditions as sent in byte 4 of the CDB.
const (
	StartStopStop  = 0x00
	StartStopStart = 0x01
	StartStopEject = 0x02
	StartStopLoad  = 0x03
)

// INQUIRY response constants.
const (
	DeviceTypeDisk           = 0x00 // Direct access block device (disk)
	InquiryStandardSize      = 36
	InquiryVersionSPC4       = 0x06
	InquiryResponseFormatSPC = 0x02
	InquiryRMB               = 0x80 // Removable media bit
	InquiryEVPD              = 0x01
	VPDDeviceIdentification  = 0x83
)

// Formatted and missing media descriptor types of READ FORMAT CAPACITIES.
const (
	DescTypeFormatted = 0x02
	DescTypeNoMedia   = 0x03
)

// BlockSize is the only block size the Responder serves.
const BlockSize = 512
