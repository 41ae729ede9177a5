package api

// StatusFor exposes the domain error mapping to external tests.
var StatusFor = statusFor
