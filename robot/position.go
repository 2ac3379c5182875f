package robot

// ArmPosition is a named arm location reported by the controller.
type ArmPosition struct {
	ID   int
	Name string
}

func (p ArmPosition) String() string { return p.Name }

var (
	PositionUndefined         = ArmPosition{ID: 0, Name: "Undefined"}
	PositionHome              = ArmPosition{ID: 100, Name: "HOME"}
	PositionSoak              = ArmPosition{ID: 110, Name: "SOAK"}
	PositionDewarCenter       = ArmPosition{ID: 120, Name: "DEWAR_CENTER"}
	PositionDGripperStore     = ArmPosition{ID: 130, Name: "DGRIPPER_STORE"}
	PositionDryZone           = ArmPosition{ID: 140, Name: "DRY_ZONE"}
	PositionDryStart          = ArmPosition{ID: 150, Name: "DRY_START"}
	PositionDryEnd            = ArmPosition{ID: 160, Name: "DRY_END"}
	PositionGonio             = ArmPosition{ID: 170, Name: "GONIO"}
	PositionPlateGonio        = ArmPosition{ID: 180, Name: "PLATE_GONIO"}
	PositionPlateGripperStore = ArmPosition{ID: 190, Name: "PLATEGRIPPER_STORE"}
	PositionPlateGripperHome  = ArmPosition{ID: 200, Name: "PLATEGRIPPER_HOME"}
	PositionCalibrationTool   = ArmPosition{ID: 210, Name: "CALIBRATION_TOOL"}
	PositionLaserStore        = ArmPosition{ID: 220, Name: "LASER_STORE"}
	PositionArmIsParked       = ArmPosition{ID: 1000, Name: "10_ARM_IS_PARKED"}
)

var positions = newCatalog("arm position",
	func(p ArmPosition) int { return p.ID },
	func(p ArmPosition) string { return p.Name },
	PositionUndefined,
	PositionHome,
	PositionSoak,
	PositionDewarCenter,
	PositionDGripperStore,
	PositionDryZone,
	PositionDryStart,
	PositionDryEnd,
	PositionGonio,
	PositionPlateGonio,
	PositionPlateGripperStore,
	PositionPlateGripperHome,
	PositionCalibrationTool,
	PositionLaserStore,
	ArmPosition{ID: 500, Name: "PATH_TOOL_STORE"},
	ArmPosition{ID: 510, Name: "TOOL_STORE"},
	ArmPosition{ID: 520, Name: "PATH_GONIO_0"},
	ArmPosition{ID: 530, Name: "PATH_PLATEHOLDER"},
	ArmPosition{ID: 540, Name: "PLATE_TOOLSTORE"},
	ArmPosition{ID: 550, Name: "PATH_DRY"},
	ArmPosition{ID: 560, Name: "PATH_GONIO_1"},
	ArmPosition{ID: 570, Name: "PATH_GONIO_2"},
	ArmPosition{ID: 800, Name: "00_DRY_ZONE"},
	ArmPosition{ID: 810, Name: "01_HOME_ZONE"},
	ArmPosition{ID: 820, Name: "02_TOOLPLATEHOLDER_ZONE"},
	ArmPosition{ID: 825, Name: "02_LSRTOOLCAL_ZONE"},
	ArmPosition{ID: 830, Name: "03_TOOLSTORE_ZONE"},
	ArmPosition{ID: 840, Name: "04_GONIORECT_ZONE"},
	ArmPosition{ID: 850, Name: "05_MOTION_ZONE"},
	ArmPosition{ID: 860, Name: "06_Q1"},
	ArmPosition{ID: 870, Name: "07_Q2"},
	ArmPosition{ID: 880, Name: "08_Q3"},
	ArmPosition{ID: 890, Name: "09_Q4"},
	ArmPosition{ID: 900, Name: "04_GONIO_DEADZONE"},
	ArmPosition{ID: 910, Name: "01_DEWARZONEN2"},
	ArmPosition{ID: 920, Name: "02_DEWAR_ZONE"},
	ArmPosition{ID: 930, Name: "03_DEWAR_LID_DEADZONE"},
	ArmPosition{ID: 940, Name: "00_CALIB_ZONE"},
	ArmPosition{ID: 950, Name: "00_SOAK_ZONE"},
	PositionArmIsParked,
	ArmPosition{ID: 1010, Name: "11_DEADZONE_1"},
	ArmPosition{ID: 1020, Name: "12_DEADZONE_2"},
	ArmPosition{ID: 1030, Name: "15_DEADZONE_3"},
	ArmPosition{ID: 1040, Name: "16_DEADZONE_4"},
)

// ArmPositionByID returns the arm position with the given id.
func ArmPositionByID(id int) (ArmPosition, bool) { return positions.id(id) }

// LookupArmPosition resolves a wire token holding an arm position id or name.
func LookupArmPosition(raw string) (ArmPosition, error) { return positions.lookup(raw) }
