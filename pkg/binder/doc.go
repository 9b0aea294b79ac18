// Package binder decodes JSON request bodies for the auth API with a size
// cap and strict field matching.
//
//	var in validator.LoginInput
//	if err := binder.JSON(r, &in); err != nil {
//		// 400 or 415
//	}
package binder
