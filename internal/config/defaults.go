package config

import "time"

// applyDefaults fills in anything the YAML file omitted. The filter tables
// and source lists default to the built-in sets below so a minimal config
// file (database + webhook) is enough to run.
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "job-tracker"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}

	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = 5 * time.Minute
	}

	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.RetryAttempts == 0 {
		c.HTTP.RetryAttempts = 3
	}
	if c.HTTP.RetryMinWait == 0 {
		c.HTTP.RetryMinWait = 500 * time.Millisecond
	}
	if c.HTTP.RetryMaxWait == 0 {
		c.HTTP.RetryMaxWait = 10 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "JobTracker/1.0"
	}

	if c.Events.Timeout == 0 {
		c.Events.Timeout = 5 * time.Second
	}
	if c.Events.RoutingKey == "" {
		c.Events.RoutingKey = "jobs.new"
	}

	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}

	if len(c.Tracker.AlertThresholds) == 0 {
		c.Tracker.AlertThresholds = []int{3, 5, 10}
	}
	if c.Tracker.WatchIntervalHours == 0 {
		c.Tracker.WatchIntervalHours = 6
	}
	if c.Tracker.RetentionDays == 0 {
		c.Tracker.RetentionDays = 30
	}

	if len(c.Sources.Companies) == 0 {
		c.Sources.Companies = defaultCompanies()
	}
	if len(c.Sources.GitHubRepos) == 0 {
		c.Sources.GitHubRepos = []GitHubRepo{
			{Owner: "SimplifyJobs", Repo: "New-Grad-Positions", File: "README.md"},
		}
	}
	if len(c.Sources.TargetCompanies) == 0 {
		c.Sources.TargetCompanies = defaultTargetCompanies()
	}

	if len(c.Filter.TitleKeywords) == 0 {
		c.Filter.TitleKeywords = defaultTitleKeywords()
	}
	if len(c.Filter.RoleKeywords) == 0 {
		c.Filter.RoleKeywords = defaultRoleKeywords()
	}
	if len(c.Filter.TitleExclusions) == 0 {
		c.Filter.TitleExclusions = defaultTitleExclusions()
	}
	if len(c.Filter.SeniorityExclusions) == 0 {
		c.Filter.SeniorityExclusions = defaultSeniorityExclusions()
	}
	if len(c.Filter.SeniorityExclusionPatterns) == 0 {
		c.Filter.SeniorityExclusionPatterns = defaultSeniorityExclusionPatterns()
	}
	if len(c.Filter.PreferredLocations) == 0 {
		c.Filter.PreferredLocations = defaultPreferredLocations()
	}
	if len(c.Filter.BlockedLocations) == 0 {
		c.Filter.BlockedLocations = defaultBlockedLocations()
	}
}

func defaultCompanies() []Company {
	return []Company{
		{Name: "Google", URL: "https://careers.google.com/jobs/results/?employment_type=FULL_TIME&q=software%20engineer%20new%20grad", ATS: "internal"},
		{Name: "Meta", URL: "https://www.metacareers.com/jobs?roles[0]=full-time&teams[0]=Software%20Engineering", ATS: "internal"},
		{Name: "Amazon", URL: "https://www.amazon.jobs/en/search?base_query=software+engineer+new+grad", ATS: "internal"},
		{Name: "Apple", URL: "https://jobs.apple.com/en-us/search?sort=newest&search=software%20engineer%20new%20grad", ATS: "internal"},
		{Name: "Netflix", URL: "https://jobs.netflix.com/search?q=software%20engineer", ATS: "lever"},
		{Name: "Airbnb", URL: "https://careers.airbnb.com/positions/?department=engineering", ATS: "greenhouse"},
		{Name: "Rubrik", URL: "https://www.rubrik.com/company/careers/departments/job-openings", ATS: "greenhouse"},
	}
}

func defaultTargetCompanies() []string {
	return []string{
		"google", "meta", "facebook", "amazon", "apple", "netflix", "airbnb",
		"rubrik", "microsoft", "stripe", "coinbase", "databricks", "figma",
		"notion", "discord", "snap", "uber", "lyft", "doordash", "instacart",
		"robinhood", "plaid",
	}
}

// defaultTitleKeywords mark explicitly entry-level postings. The 4-digit
// years are graduation cohorts, which is also why the seniority patterns
// below stay scoped to single digits.
func defaultTitleKeywords() []string {
	return []string{
		"new grad", "new graduate", "entry level", "entry-level", "junior",
		"university", "2024", "2025", "2026", "early career", "associate",
		"recent grad",
	}
}

func defaultRoleKeywords() []string {
	return []string{
		"software", "engineer", "developer", "swe", "backend", "frontend",
		"full stack", "fullstack",
	}
}

// defaultTitleExclusions reject non-SWE roles. Data/ML/AI Engineer and
// DevOps/SRE/Platform Engineer are intentionally absent.
func defaultTitleExclusions() []string {
	return []string{
		"sales engineer", "solutions engineer", "solution engineer",
		"customer engineer", "support engineer", "field engineer",
		"android", "ios engineer", "ios developer", "mobile engineer",
		"qa engineer", "test engineer", "sdet", "quality assurance",
		"hardware", "embedded", "firmware", "asic", "fpga",
		"security engineer", "network engineer",
		"electrical engineer", "mechanical engineer", "civil engineer",
		"recruiter", "product manager", "program manager", "designer",
		"data center",
	}
}

func defaultSeniorityExclusions() []string {
	return []string{
		"senior", "staff", "principal", "distinguished", "lead", "manager",
		"director", "architect", "head of", "vice president", "sr.", "sr ",
	}
}

// defaultSeniorityExclusionPatterns catch leveled titles the keyword list
// misses. Digit classes stay at [2-9]: a "\d" here would overlap 4-digit
// graduation years like 2025 and reject new-grad postings.
func defaultSeniorityExclusionPatterns() []string {
	return []string{
		`\b(?:ii|iii|iv|v)\b`,
		`\b(?:sde|swe|engineer|developer)\s*[2-9]\b`,
		`\bl[4-9]\b`,
		`\blevel\s*[4-9]\b`,
		`\b[2-9]\s*\+\s*years?\b`,
		`\b[2-9]\s+years?\b`,
	}
}

func defaultPreferredLocations() []string {
	return []string{
		"seattle", "remote", "united states", "usa", "us", "san francisco",
		"new york", "mountain view", "palo alto", "sunnyvale", "menlo park",
	}
}

func defaultBlockedLocations() []string {
	return []string{
		// UK and Ireland
		"uk", "united kingdom", "london", "cambridge", "oxford", "edinburgh",
		"dublin", "ireland",
		// Europe
		"germany", "berlin", "munich", "france", "paris", "netherlands",
		"amsterdam", "poland", "warsaw", "spain", "madrid", "barcelona",
		"switzerland", "zurich", "sweden", "stockholm", "israel", "tel aviv",
		// India
		"india", "bangalore", "bengaluru", "hyderabad", "chennai", "pune",
		"mumbai", "noida", "gurgaon", "gurugram",
		// APAC
		"singapore", "japan", "tokyo", "korea", "seoul", "china", "beijing",
		"shanghai", "shenzhen", "taiwan", "taipei", "hong kong", "australia",
		"sydney", "melbourne", "new zealand",
		// Americas outside the US
		"canada", "toronto", "vancouver", "montreal", "ottawa", "waterloo",
		"ontario", "british columbia", "brazil", "mexico",
	}
}
