package docs

// @title           iSpeed API
// @version         1.0
// @description     Fleet safety backend: live trip monitoring with distraction alerts, trip records, users and reports.

// @contact.name   iSpeed Support
// @contact.email  support@ispeed.pe

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
