package sandbox

// Screen describes a list screen rendered by the sandbox ui. The browser script reads it as json,
// loads the kind from the api and renders rows, the sort menu and the filter dialog. Screens with a
// Form open it from the add button, others only toast that adding is not available.
type Screen struct {
	Path      string        `json:"path"`
	Label     string        `json:"label"` // sidebar caption
	Title     string        `json:"title"`
	Kind      string        `json:"kind"`
	Layout    string        `json:"layout"` // table, cards or calendar
	Columns   []Column      `json:"columns,omitempty"`
	Sorts     []SortOption  `json:"sorts,omitempty"`
	Filters   []FilterGroup `json:"filters,omitempty"`
	Empty     string        `json:"empty"`
	NoResults string        `json:"noResults,omitempty"` // empty state of a search, Empty if not set
	AddLabel  string        `json:"addLabel,omitempty"`
	Tabs      []string      `json:"tabs,omitempty"`
	Form      *Form         `json:"form,omitempty"`
	AdminOnly bool          `json:"-"`
}

// Form is the add dialog of a screen. Saving posts the field values to the kind of the screen,
// toasts Done and reloads the list.
type Form struct {
	Title  string      `json:"title"`
	Submit string      `json:"submit"`
	Done   string      `json:"done"`
	Fields []FormField `json:"fields"`
}

// FormField is an input of the add dialog, Kind is one of text, textarea, select, date, file and files.
// Select options are Options or, when Lookup is set as "kind/field", the distinct values of that field.
// Date values are posted as YYYY-MM-DD, file inputs post the file names.
type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options,omitempty"`
	Lookup   string   `json:"lookup,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// Column is a table column, Format is one of text, index, plate, yesno, date, status, span and count
type Column struct {
	Header string `json:"header"`
	Field  string `json:"field,omitempty"`
	Format string `json:"format,omitempty"`
}

// SortOption is an entry of the "Sort:" menu and the api sorts param it sends
type SortOption struct {
	Label  string `json:"label"`
	Param  string `json:"param"`
	TestID string `json:"testId,omitempty"`
}

// FilterGroup is a section of the filter dialog, Kind is radio, checkbox, dropdown, popover or single.
// Popover options are the distinct values of Field, loaded by the browser.
type FilterGroup struct {
	Title   string         `json:"title"`
	Kind    string         `json:"kind"`
	Field   string         `json:"field,omitempty"`
	Options []FilterOption `json:"options,omitempty"`
}

// FilterOption is a choice of a filter group and the filters terms it adds
type FilterOption struct {
	Label string `json:"label"`
	Expr  string `json:"expr"`
}

// ServiceTypes are the choices of the maintenance form and filter
var ServiceTypes = []string{"Oil Change", "Tire Rotation", "Brake Inspection", "Battery Replacement", "Engine Tune-Up"}

func yesNo(field string) []FilterOption {
	return []FilterOption{{Label: "Yes", Expr: field + "!=null"}, {Label: "No", Expr: field + "==null"}}
}

// Screens of the sandbox in sidebar order
var Screens = []Screen{
	{
		Path: "/vehicles", Label: "Vehicles", Title: "Vehicles", Kind: KindVehicles, Layout: "table",
		Empty: "No vehicles found", AddLabel: "Add Vehicle",
		Columns: []Column{
			{Header: "#", Format: "index"},
			{Header: "Vehicle", Field: "plateNo", Format: "plate"},
			{Header: "Assigned To", Field: "driver.name"},
			{Header: "Type", Field: "vehicleType"},
			{Header: "Fleet Group", Field: "fleetGroup"},
			{Header: "Status", Field: "status", Format: "status"},
			{Header: "Insurance Policy No.", Field: "insurancePolicyNumber"},
			{Header: "Policy Expiry", Field: "policyExpiryDate", Format: "date"},
			{Header: "Registration No.", Field: "registrationNumber"},
			{Header: "Registration Expiry", Field: "registrationExpiryDate", Format: "date"},
		},
		Sorts: []SortOption{
			{Label: "Vehicle Plate No. (Z-A)", Param: "-PlateNo"},
			{Label: "Vehicle Plate No. (A-Z)", Param: "PlateNo"},
			{Label: "Assigned To (A-Z)", Param: "AssignedDriver.FirstName"},
			{Label: "Assigned To (Z-A)", Param: "-AssignedDriver.FirstName"},
			{Label: "Policy Expiry (Soon)", Param: "policyExpiryDate"},
			{Label: "Policy Expiry (Latest)", Param: "-policyExpiryDate"},
		},
		Filters: []FilterGroup{
			{Title: "Status", Kind: "checkbox", Options: []FilterOption{
				{Label: "Active", Expr: "status==Active"}, {Label: "Inactive", Expr: "status==Inactive"},
				{Label: "In Maintenance", Expr: "status==In Maintenance"}}},
			{Title: "Vehicle Type", Kind: "dropdown", Options: []FilterOption{
				{Label: "Sedan", Expr: "vehicleType==Sedan"}, {Label: "SUV", Expr: "vehicleType==SUV"},
				{Label: "Truck", Expr: "vehicleType==Truck"}, {Label: "Van", Expr: "vehicleType==Van"}}},
			{Title: "Fuel Type", Kind: "dropdown", Options: []FilterOption{
				{Label: "Petrol", Expr: "fuelType==Petrol"}, {Label: "Diesel", Expr: "fuelType==Diesel"},
				{Label: "Electric", Expr: "fuelType==Electric"}, {Label: "Hybrid", Expr: "fuelType==Hybrid"}}},
		},
	},
	{
		Path: "/drivers", Label: "Drivers", Title: "Drivers", Kind: KindDrivers, Layout: "table",
		Empty: "No drivers found", AddLabel: "Add Driver",
		Columns: []Column{
			{Header: "#", Format: "index"},
			{Header: "Name", Field: "firstName"},
			{Header: "Vehicle", Field: "vehiclePlateNo"},
			{Header: "Primary Driver", Field: "isPrimaryDriver", Format: "yesno"},
			{Header: "Behaviour Score", Field: "behaviorScore"},
			{Header: "Authorization", Field: "authorization", Format: "status"},
		},
		Sorts: []SortOption{
			{Label: "Name (A-Z)", Param: "firstName"},
			{Label: "Name (Z-A)", Param: "-firstName"},
			{Label: "Behaviour Score (Low-High)", Param: "behaviorScore"},
			{Label: "Behaviour Score (High-Low)", Param: "-behaviorScore"},
		},
		Filters: []FilterGroup{
			{Title: "Vehicle Assigned", Kind: "radio", Options: yesNo("vehiclePlateNo")},
			{Title: "Primary Driver", Kind: "radio", Options: []FilterOption{
				{Label: "Yes", Expr: "isPrimaryDriver==true"}, {Label: "No", Expr: "isPrimaryDriver==false"}}},
			{Title: "Behaviour Score", Kind: "radio", Options: []FilterOption{
				{Label: "0-50", Expr: "behaviorScore>=0,behaviorScore<=50"},
				{Label: "51-79", Expr: "behaviorScore>=51,behaviorScore<=79"},
				{Label: "80-100", Expr: "behaviorScore>=80,behaviorScore<=100"}}},
		},
	},
	{
		Path: "/devices", Label: "Devices", Title: "Devices", Kind: KindDevices, Layout: "table",
		Empty: "No devices found matching your criteria", AddLabel: "Add Device",
		Columns: []Column{
			{Header: "ID", Field: "id"},
			{Header: "Manufacturer", Field: "manufacturer"},
			{Header: "Model", Field: "model"},
			{Header: "IMEI", Field: "imei"},
			{Header: "Phone Number", Field: "phoneNumber"},
			{Header: "Status", Field: "status", Format: "status"},
		},
		Sorts: []SortOption{
			{Label: "Model (Z-A)", Param: "-Model"},
			{Label: "Model (A-Z)", Param: "Model"},
			{Label: "Manufacturer (A-Z)", Param: "Manufacturer"},
			{Label: "Manufacturer (Z-A)", Param: "-Manufacturer"},
			{Label: "Newest", Param: "id"},
			{Label: "Oldest", Param: "-id"},
		},
		Filters: []FilterGroup{
			{Title: "Device Assigned", Kind: "radio", Options: yesNo("vehicleId")},
			{Title: "Manufacturer", Kind: "dropdown", Options: []FilterOption{
				{Label: "Teltonika", Expr: "manufacturer==Teltonika"}, {Label: "Queclink", Expr: "manufacturer==Queclink"},
				{Label: "Concox", Expr: "manufacturer==Concox"}}},
			{Title: "Model", Kind: "dropdown", Options: []FilterOption{
				{Label: "FMB920", Expr: "model==FMB920"}, {Label: "FMC130", Expr: "model==FMC130"},
				{Label: "GV300", Expr: "model==GV300"}, {Label: "GT06N", Expr: "model==GT06N"}}},
			{Title: "Status", Kind: "checkbox", Options: []FilterOption{
				{Label: "Online", Expr: "status==Online"}, {Label: "Offline", Expr: "status==Offline"}}},
		},
	},
	{
		Path: "/routes", Label: "Routes", Title: "Routes", Kind: KindRoutes, Layout: "cards",
		Empty: "No routes found", AddLabel: "Add Route",
		Sorts: []SortOption{
			{Label: "Newest", Param: "-Id"},
			{Label: "Oldest", Param: "Id"},
			{Label: "Shortest Distance", Param: "distance", TestID: "routes-main-sort-option-shortest"},
			{Label: "Longest Distance", Param: "-distance", TestID: "routes-main-sort-option-longest"},
			{Label: "Most Stops", Param: "-numberOfStops", TestID: "routes-main-sort-option-most-stops"},
			{Label: "Fewest Stops", Param: "numberOfStops", TestID: "routes-main-sort-option-fewest-stops"},
		},
		Filters: []FilterGroup{
			{Title: "No of Stops", Kind: "radio", Options: []FilterOption{
				{Label: "2-5", Expr: "numberOfStops>=2,numberOfStops<=5"},
				{Label: "6-10", Expr: "numberOfStops>=6,numberOfStops<=10"},
				{Label: "10+", Expr: "numberOfStops>10"}}},
			{Title: "Total Distance", Kind: "radio", Options: []FilterOption{
				{Label: "<50 km", Expr: "distance<50000"},
				{Label: "50-200 km", Expr: "distance>=50000,distance<=200000"},
				{Label: "200+ km", Expr: "distance>200000"}}},
			{Title: "Total Duration", Kind: "radio", Options: []FilterOption{
				{Label: "<1h", Expr: "duration<3600"},
				{Label: "1-4h", Expr: "duration>=3600,duration<18000"},
				{Label: "4-8h", Expr: "duration>=14400,duration<32400"},
				{Label: "8h+", Expr: "duration>=32400"}}},
			{Title: "Created By", Kind: "dropdown", Options: []FilterOption{
				{Label: "Me", Expr: "createdBy==@me"}, {Label: "Others", Expr: "createdBy!=@me"}}},
		},
	},
	{
		Path: "/scheduling", Label: "Scheduling", Title: "Scheduling", Kind: KindSchedules, Layout: "calendar",
		Empty: "No trips scheduled", AddLabel: "New Trip",
		Filters: []FilterGroup{
			{Title: "Fleet Group", Kind: "popover", Field: "fleetGroup"},
			{Title: "Vehicle", Kind: "popover", Field: "vehicle"},
			{Title: "Driver", Kind: "popover", Field: "driver"},
			{Title: "Route", Kind: "popover", Field: "route"},
		},
	},
	{
		Path: "/groups", Label: "Fleet Groups", Title: "Fleet Groups", Kind: KindGroups, Layout: "table",
		Empty: "No groups found", NoResults: "No results found", AddLabel: "Create Group",
		Columns: []Column{
			{Header: "#", Format: "index"},
			{Header: "Group Name", Field: "groupName"},
			{Header: "Fleet Manager", Field: "manager"},
			{Header: "Created By", Field: "createdBy"},
			{Header: "No. of Vehicles", Field: "count"},
		},
		Sorts: []SortOption{
			{Label: "Group Name (A-Z)", Param: "groupName"},
			{Label: "Group Name (Z-A)", Param: "-groupName"},
			{Label: "No. of Vehicles (Low-High)", Param: "vehicleCount"},
			{Label: "No. of Vehicles (High-Low)", Param: "-vehicleCount"},
		},
		Filters: []FilterGroup{
			{Title: "Fleet Manager", Kind: "popover", Field: "manager"},
			{Title: "Created By", Kind: "single", Field: "createdBy"},
			{Title: "No. of Vehicles", Kind: "checkbox", Options: []FilterOption{
				{Label: "0-5", Expr: "count>=0,count<=5"},
				{Label: "6-10", Expr: "count>=6,count<=10"},
				{Label: "11+", Expr: "count>=11"}}},
		},
	},
	{
		Path: "/customers", Label: "Customers", Title: "Customers", Kind: KindOrganizations, Layout: "table",
		Empty: "No customers found", AddLabel: "Add Customer", AdminOnly: true,
		Columns: []Column{
			{Header: "#", Format: "index"},
			{Header: "Customer Name", Field: "companyName", Format: "span"},
			{Header: "Admin Name", Field: "orgAdmin.name", Format: "span"},
			{Header: "Admin Email", Field: "adminEmail"},
			{Header: "Country", Field: "country"},
			{Header: "Deployment", Field: "deploymentType", Format: "status"},
		},
		Sorts: []SortOption{
			{Label: "Customer Name (Z-A)", Param: "-companyName"},
			{Label: "Customer Name (A-Z)", Param: "companyName"},
			{Label: "Admin Name (A-Z)", Param: "orgAdminName"},
			{Label: "Admin Name (Z-A)", Param: "-orgAdminName"},
		},
		Filters: []FilterGroup{
			{Title: "Deployment Type", Kind: "checkbox", Options: []FilterOption{
				{Label: "Cloud", Expr: "deploymentType==Cloud"}, {Label: "On-Premise", Expr: "deploymentType==On-Premise"}}},
		},
	},
	{
		Path: "/users-and-roles", Label: "Users & Roles", Title: "Users & Roles", Kind: KindUsers, Layout: "table",
		Empty: "No users found", AddLabel: "Invite User", Tabs: []string{"Users", "Roles"},
		Columns: []Column{
			{Header: "#", Format: "index"},
			{Header: "Name", Field: "fullName"},
			{Header: "Email", Field: "email"},
			{Header: "Role", Field: "role"},
			{Header: "Status", Field: "status", Format: "status"},
		},
		Sorts: []SortOption{
			{Label: "Newest", Param: "-id"},
			{Label: "Oldest", Param: "id"},
			{Label: "Email (A-Z)", Param: "email"},
			{Label: "Email (Z-A)", Param: "-email"},
			{Label: "Last Login (Most Recent)", Param: "-lastLogin"},
			{Label: "Last Login (Least Recent)", Param: "lastLogin"},
		},
		Filters: []FilterGroup{
			{Title: "Role", Kind: "dropdown", Options: []FilterOption{
				{Label: "Driver", Expr: "role==Driver"}, {Label: "Fleet Admin", Expr: "role==Fleet Admin"},
				{Label: "Fleet Manager", Expr: "role==Fleet Manager"},
				{Label: "Organization Admin", Expr: "role==Organization Admin"},
				{Label: "Security Admin", Expr: "role==Security Admin"}}},
			{Title: "Status", Kind: "checkbox", Options: []FilterOption{
				{Label: "Active", Expr: "status==Active"}, {Label: "Invited", Expr: "status==Invited"}}},
		},
	},
	{
		Path: "/maintenance", Label: "Maintenance", Title: "Maintenance", Kind: KindMaintenance, Layout: "table",
		Empty: "No service records found", AddLabel: "Log Service",
		Columns: []Column{
			{Header: "#", Format: "index"},
			{Header: "Vehicle", Field: "vehicle"},
			{Header: "Service Type", Field: "serviceType"},
			{Header: "Workshop", Field: "workshop"},
			{Header: "Service Date", Field: "serviceDate", Format: "date"},
			{Header: "Next Service", Field: "nextServiceDate", Format: "date"},
			{Header: "Documents", Field: "documents", Format: "count"},
		},
		Sorts: []SortOption{
			{Label: "Newest", Param: "-id"},
			{Label: "Oldest", Param: "id"},
			{Label: "Service Date (Latest)", Param: "-serviceDate"},
			{Label: "Service Date (Earliest)", Param: "serviceDate"},
		},
		Filters: []FilterGroup{
			{Title: "Service Type", Kind: "dropdown", Options: serviceTypeFilters()},
			{Title: "Vehicle", Kind: "popover", Field: "vehicle"},
		},
		Form: &Form{
			Title: "Log Service", Submit: "Save Service", Done: "Service record added successfully",
			Fields: []FormField{
				{Name: "vehicle", Label: "Vehicle", Kind: "select", Lookup: KindVehicles + "/plateNo", Required: true},
				{Name: "serviceType", Label: "Service Type", Kind: "select", Options: ServiceTypes, Required: true},
				{Name: "workshop", Label: "Workshop", Kind: "text"},
				{Name: "serviceDate", Label: "Service Date", Kind: "date", Required: true},
				{Name: "nextServiceDate", Label: "Next Service Date", Kind: "date"},
				{Name: "invoice", Label: "Invoice", Kind: "file"},
				{Name: "documents", Label: "Additional Files", Kind: "files"},
				{Name: "notes", Label: "Notes", Kind: "textarea"},
			},
		},
	},
}

func serviceTypeFilters() []FilterOption {
	res := make([]FilterOption, 0, len(ServiceTypes))
	for _, t := range ServiceTypes {
		res = append(res, FilterOption{Label: t, Expr: "serviceType==" + t})
	}
	return res
}

// screenByPath finds a list screen
func screenByPath(path string) (Screen, bool) {
	for _, s := range Screens {
		if s.Path == path {
			return s, true
		}
	}
	return Screen{}, false
}
