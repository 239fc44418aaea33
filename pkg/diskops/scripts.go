package diskops

// Fixed PowerShell scripts. Parameters arrive only through ONECLICK_*
// environment variables and are cast to their types inside the script, so no
// operator-supplied text ever becomes script source.

const scriptPrelude = `$ErrorActionPreference = 'Stop'
$ProgressPreference = 'SilentlyContinue'
`

const scriptListDisks = `ConvertTo-Json -Compress -InputObject @(Get-Disk | Sort-Object Number | ForEach-Object {
    [pscustomobject]@{ Number = [uint32]$_.Number; FriendlyName = [string]$_.FriendlyName; Size = [uint64]$_.Size }
})
`

const scriptFindBootDisk = `$bp = Get-Partition | Where-Object IsBoot -eq $true | Select-Object -First 1
if (-not $bp) { exit 2 }
[Console]::Out.Write([string]$bp.DiskNumber)
`

const scriptBootPartition = `$disk = [uint32]$env:ONECLICK_DISK
$bp = Get-Partition -DiskNumber $disk | Where-Object IsBoot -eq $true | Select-Object -First 1
if (-not $bp) { exit 2 }
`

const scriptShrinkBounds = scriptBootPartition + `$sup = Get-PartitionSupportedSize -DiskNumber $disk -PartitionNumber $bp.PartitionNumber
ConvertTo-Json -Compress -InputObject ([pscustomobject]@{
    PartitionNumber = [uint32]$bp.PartitionNumber
    DriveLetter     = [string]$bp.DriveLetter
    Current         = [uint64]$bp.Size
    Minimum         = [uint64]$sup.SizeMin
    Maximum         = [uint64]$sup.SizeMax
})
`

const scriptResizeBoot = scriptBootPartition + `Resize-Partition -DiskNumber $disk -PartitionNumber $bp.PartitionNumber -Size ([uint64]$env:ONECLICK_SIZE)
`

const scriptCreatePartition = `$p = New-Partition -DiskNumber ([uint32]$env:ONECLICK_DISK) -Size ([uint64]$env:ONECLICK_SIZE) -AssignDriveLetter
$null = Format-Volume -Partition $p -FileSystem $env:ONECLICK_FS -NewFileSystemLabel $env:ONECLICK_LABEL -Confirm:$false
$p = Get-Partition -DiskNumber $p.DiskNumber -PartitionNumber $p.PartitionNumber
ConvertTo-Json -Compress -InputObject ([pscustomobject]@{
    Disk            = [uint32]$p.DiskNumber
    PartitionNumber = [uint32]$p.PartitionNumber
    DriveLetter     = [string]$p.DriveLetter
    Size            = [uint64]$p.Size
})
`

const scriptVolumeJSON = `ConvertTo-Json -Compress -InputObject ([pscustomobject]@{
    DriveLetter = [string]$v.DriveLetter
    Label       = [string]$v.FileSystemLabel
    FileSystem  = [string]$v.FileSystem
    Size        = [uint64]$v.Size
})
`

const scriptFindVolumeByLabel = `$v = Get-Volume -FileSystemLabel $env:ONECLICK_LABEL -ErrorAction SilentlyContinue | Select-Object -First 1
if (-not $v) { exit 2 }
` + scriptVolumeJSON

const scriptMountImage = `$null = Mount-DiskImage -ImagePath $env:ONECLICK_IMAGE -StorageType ISO -PassThru
`

const scriptImageVolume = `$v = Get-DiskImage -ImagePath $env:ONECLICK_IMAGE | Get-Volume | Select-Object -First 1
if (-not $v) { exit 2 }
` + scriptVolumeJSON

const scriptDismountImage = `$null = Dismount-DiskImage -ImagePath $env:ONECLICK_IMAGE
`
