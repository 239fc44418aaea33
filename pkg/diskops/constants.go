package diskops

// Fixed values for the partition staged by the installer.
const (
	// LinuxVolumeLabel is the label later stages use to find the new partition.
	LinuxVolumeLabel = "LINUXOS"
	// LinuxFileSystem is the filesystem the new partition is formatted with.
	LinuxFileSystem FileSystem = "NTFS"
)

// GiB is the unit for partition size requests (PowerShell's 1GB).
const GiB uint64 = 1 << 30

// Host executables.
const (
	DefaultPowerShell = "powershell.exe"
	DefaultRobocopy   = "robocopy.exe"
)

// Environment variables carrying parameters into the fixed PowerShell scripts.
const (
	envDisk  = "ONECLICK_DISK"
	envSize  = "ONECLICK_SIZE"
	envLabel = "ONECLICK_LABEL"
	envFS    = "ONECLICK_FS"
	envImage = "ONECLICK_IMAGE"
)

// Script exit code meaning "the queried object does not exist".
const exitNotFound = 2
