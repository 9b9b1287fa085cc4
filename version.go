package nestor

// Version is the current release of the nestor module.
const Version = "0.3.0"
